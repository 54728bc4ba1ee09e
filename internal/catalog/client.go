package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/replyflow/replyflow-backend/internal/mappings"
	"github.com/replyflow/replyflow-backend/pkg/db/models"
	pkgerrors "github.com/replyflow/replyflow-backend/pkg/errors"
	"github.com/replyflow/replyflow-backend/pkg/logger"
)

type merchantLookup interface {
	Get(ctx context.Context, merchantID uuid.UUID) (*models.MerchantAccount, error)
}

// Client fetches product data from the merchant's storefront. Every lookup
// resolves the merchant's domain first; one client serves all merchants.
type Client struct {
	httpClient *http.Client
	merchants  merchantLookup
	scheme     string
	logg       *logger.Logger
}

// NewClient builds the storefront catalog client.
func NewClient(merchants merchantLookup, timeout time.Duration, logg *logger.Logger) (*Client, error) {
	if merchants == nil {
		return nil, fmt.Errorf("merchant lookup required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		merchants:  merchants,
		scheme:     "https",
		logg:       logg,
	}, nil
}

type productEnvelope struct {
	Product struct {
		ID       json.Number `json:"id"`
		Handle   string      `json:"handle"`
		Variants []struct {
			ID json.Number `json:"id"`
		} `json:"variants"`
	} `json:"product"`
}

// Product fetches one product from the merchant's storefront catalog.
func (c *Client) Product(ctx context.Context, merchantID uuid.UUID, productID string) (*mappings.CatalogProduct, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}

	merchant, err := c.merchants.Get(ctx, merchantID)
	if err != nil {
		return nil, err
	}
	domain := strings.TrimSpace(merchant.StorefrontDomain)
	if domain == "" {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "merchant has no storefront domain")
	}

	endpoint := fmt.Sprintf("%s://%s/products/%s.json", c.scheme, domain, productID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build catalog request")
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeTemporarilyUnavailable, err, "catalog call")
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeTemporarilyUnavailable, err, "read catalog response")
	}

	switch {
	case res.StatusCode == http.StatusNotFound:
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	case res.StatusCode >= 500:
		return nil, pkgerrors.New(pkgerrors.CodeTemporarilyUnavailable, "storefront unavailable")
	case res.StatusCode >= 400:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("storefront returned %d", res.StatusCode))
	}

	var envelope productEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode catalog response")
	}

	out := &mappings.CatalogProduct{
		ID:     envelope.Product.ID.String(),
		Handle: envelope.Product.Handle,
	}
	if out.ID == "" {
		out.ID = productID
	}
	for _, variant := range envelope.Product.Variants {
		if id := variant.ID.String(); id != "" {
			out.VariantIDs = append(out.VariantIDs, id)
		}
	}
	out.VariantCount = len(out.VariantIDs)
	return out, nil
}
