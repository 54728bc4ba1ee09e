package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/replyflow/replyflow-backend/pkg/auth"
	"github.com/replyflow/replyflow-backend/pkg/config"
	"github.com/replyflow/replyflow-backend/pkg/db/models"
	"github.com/replyflow/replyflow-backend/pkg/enums"
	"github.com/replyflow/replyflow-backend/pkg/logger"
)

type stubMerchants struct {
	merchant *models.MerchantAccount
}

func (s *stubMerchants) Install(context.Context, string) (*models.MerchantAccount, error) {
	panic("unused")
}

func (s *stubMerchants) Uninstall(context.Context, uuid.UUID) error {
	panic("unused")
}

func (s *stubMerchants) Get(context.Context, uuid.UUID) (*models.MerchantAccount, error) {
	return s.merchant, nil
}

func (s *stubMerchants) GetByDomain(context.Context, string) (*models.MerchantAccount, error) {
	panic("unused")
}

func (s *stubMerchants) ChangePlan(context.Context, uuid.UUID, enums.PlanTier) (*models.MerchantAccount, error) {
	panic("unused")
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			Env:         "test",
			Port:        "8080",
			BaseURL:     "https://rf.example.com",
			CORSOrigins: []string{"http://localhost:3000"},
		},
		JWT: config.JWTConfig{
			Secret:            "0123456789abcdef0123456789abcdef",
			Issuer:            "replyflow",
			ExpirationMinutes: 60,
		},
		Meta: config.MetaConfig{
			AppID:       "app-1",
			AppSecret:   "meta-secret",
			APIVersion:  "v21.0",
			VerifyToken: "verify-me",
		},
		Storefront: config.StorefrontConfig{WebhookSecret: "storefront-secret"},
	}
}

func newTestRouter(t *testing.T, merchant *models.MerchantAccount) http.Handler {
	t.Helper()
	logg := logger.New(logger.Options{Output: io.Discard})
	return NewRouter(Dependencies{
		Config:    testConfig(),
		Logger:    logg,
		Merchants: &stubMerchants{merchant: merchant},
	})
}

func TestRouterHealthLive(t *testing.T) {
	router := newTestRouter(t, nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.Code)
	}
	if got := resp.Header().Get("X-Replyflow-Env"); got != "test" {
		t.Fatalf("env header = %q", got)
	}
}

func TestRouterRequiresAuthOnAPIRoutes(t *testing.T) {
	router := newTestRouter(t, nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/plan", nil))

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.Code)
	}
}

func TestRouterServesAuthedRequest(t *testing.T) {
	merchantID := uuid.New()
	router := newTestRouter(t, &models.MerchantAccount{
		ID:               merchantID,
		StorefrontDomain: "gadgets.myshopfront.com",
		PlanTier:         enums.PlanTierFree,
		Active:           true,
		InstalledAt:      time.Now().UTC(),
	})

	token, err := auth.MintAccessToken(testConfig().JWT, time.Now().UTC(), auth.AccessTokenPayload{
		MerchantID: merchantID,
		JTI:        uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/plan", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", resp.Code, resp.Body.String())
	}
}

func TestRouterWebhookHandshake(t *testing.T) {
	router := newTestRouter(t, nil)
	target := "/api/v1/webhooks/meta?hub.mode=subscribe&hub.verify_token=verify-me&hub.challenge=4242"
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, target, nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.Code)
	}
	if resp.Body.String() != "4242" {
		t.Fatalf("challenge echo = %q", resp.Body.String())
	}
}

func TestRouterUnknownRoute(t *testing.T) {
	router := newTestRouter(t, nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v2/plan", nil))

	if resp.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.Code)
	}
}
