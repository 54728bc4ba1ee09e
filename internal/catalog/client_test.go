package catalog

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/replyflow/replyflow-backend/pkg/db/models"
	pkgerrors "github.com/replyflow/replyflow-backend/pkg/errors"
	"github.com/replyflow/replyflow-backend/pkg/logger"
)

type stubMerchantLookup struct {
	merchant *models.MerchantAccount
	err      error
}

func (s *stubMerchantLookup) Get(context.Context, uuid.UUID) (*models.MerchantAccount, error) {
	return s.merchant, s.err
}

func newTestClient(t *testing.T, server *httptest.Server) *Client {
	t.Helper()
	lookup := &stubMerchantLookup{merchant: &models.MerchantAccount{
		ID:               uuid.New(),
		StorefrontDomain: server.Listener.Addr().String(),
		Active:           true,
	}}
	client, err := NewClient(lookup, time.Second, logger.New(logger.Options{Output: io.Discard}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	client.scheme = "http"
	return client
}

func TestProductParsesVariants(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/products/9001.json" {
			t.Fatalf("path = %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"product":{"id":9001,"handle":"blue-hoodie","variants":[{"id":11},{"id":12}]}}`))
	}))
	defer server.Close()

	product, err := newTestClient(t, server).Product(context.Background(), uuid.New(), "9001")
	if err != nil {
		t.Fatalf("product: %v", err)
	}
	if product.ID != "9001" || product.Handle != "blue-hoodie" {
		t.Fatalf("product = %+v", product)
	}
	if len(product.VariantIDs) != 2 || product.VariantIDs[0] != "11" {
		t.Fatalf("variants = %v", product.VariantIDs)
	}
	if product.VariantCount != 2 {
		t.Fatalf("variant count = %d", product.VariantCount)
	}
}

func TestProductNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := newTestClient(t, server).Product(context.Background(), uuid.New(), "missing")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("err = %v", err)
	}
}

func TestProductStorefrontOutage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := newTestClient(t, server).Product(context.Background(), uuid.New(), "9001")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeTemporarilyUnavailable {
		t.Fatalf("err = %v", err)
	}
}

func TestProductUnknownMerchant(t *testing.T) {
	lookup := &stubMerchantLookup{err: pkgerrors.New(pkgerrors.CodeNotFound, "merchant not found")}
	client, err := NewClient(lookup, time.Second, logger.New(logger.Options{Output: io.Discard}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.Product(context.Background(), uuid.New(), "9001")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("err = %v", err)
	}
}
