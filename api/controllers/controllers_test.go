package controllers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/replyflow/replyflow-backend/api/middleware"
	"github.com/replyflow/replyflow-backend/pkg/logger"
)

var testMerchant = uuid.MustParse("0b5e3f66-1f9a-4c94-bd14-6a60a9f3f001")

func testLogger() *logger.Logger {
	return logger.New(logger.Options{Output: io.Discard})
}

func authedRequest(method, target string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, target, body)
	return req.WithContext(middleware.WithMerchantID(req.Context(), testMerchant.String()))
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rc := chi.NewRouteContext()
	rc.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func TestMerchantFromRequestRequiresContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/plan", nil)
	if _, err := merchantFromRequest(req); err == nil {
		t.Fatal("expected an error without merchant context")
	}
}

func TestMerchantFromRequestParsesID(t *testing.T) {
	id, err := merchantFromRequest(authedRequest(http.MethodGet, "/api/v1/plan", nil))
	if err != nil {
		t.Fatalf("merchantFromRequest: %v", err)
	}
	if id != testMerchant {
		t.Fatalf("id = %s, want %s", id, testMerchant)
	}
}
