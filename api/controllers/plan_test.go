package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/replyflow/replyflow-backend/pkg/db/models"
	"github.com/replyflow/replyflow-backend/pkg/enums"
)

type stubMerchantsService struct {
	merchant *models.MerchantAccount
	err      error
}

func (s *stubMerchantsService) Install(context.Context, string) (*models.MerchantAccount, error) {
	panic("unused")
}

func (s *stubMerchantsService) Uninstall(context.Context, uuid.UUID) error {
	panic("unused")
}

func (s *stubMerchantsService) Get(context.Context, uuid.UUID) (*models.MerchantAccount, error) {
	return s.merchant, s.err
}

func (s *stubMerchantsService) GetByDomain(context.Context, string) (*models.MerchantAccount, error) {
	panic("unused")
}

func (s *stubMerchantsService) ChangePlan(context.Context, uuid.UUID, enums.PlanTier) (*models.MerchantAccount, error) {
	panic("unused")
}

func TestGetPlanReportsFreeTier(t *testing.T) {
	installed := time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)
	svc := &stubMerchantsService{merchant: &models.MerchantAccount{
		ID:               testMerchant,
		StorefrontDomain: "gadgets.myshopfront.com",
		PlanTier:         enums.PlanTierFree,
		Active:           true,
		InstalledAt:      installed,
	}}
	resp := httptest.NewRecorder()
	GetPlan(svc, testLogger())(resp, authedRequest(http.MethodGet, "/api/v1/plan", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", resp.Code, resp.Body.String())
	}
	var envelope struct {
		Data planResponse `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	got := envelope.Data
	if got.Tier != string(enums.PlanTierFree) {
		t.Fatalf("tier = %q", got.Tier)
	}
	if got.MonthlyMessageCap != 50 {
		t.Fatalf("cap = %d, want 50", got.MonthlyMessageCap)
	}
	if got.MonthlyPriceUSD != "0.00" {
		t.Fatalf("price = %q, want 0.00", got.MonthlyPriceUSD)
	}
	if !got.CommentAutomation || got.Conversational || got.BrandVoice || got.FollowUp {
		t.Fatalf("feature flags = %+v", got)
	}
	if got.StorefrontDomain != "gadgets.myshopfront.com" || !got.Active {
		t.Fatalf("merchant fields = %+v", got)
	}
}

func TestGetPlanUnlimitedCapOnPro(t *testing.T) {
	svc := &stubMerchantsService{merchant: &models.MerchantAccount{
		ID:               testMerchant,
		StorefrontDomain: "gadgets.myshopfront.com",
		PlanTier:         enums.PlanTierPro,
		Active:           true,
		InstalledAt:      time.Now().UTC(),
	}}
	resp := httptest.NewRecorder()
	GetPlan(svc, testLogger())(resp, authedRequest(http.MethodGet, "/api/v1/plan", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.Code)
	}
	var envelope struct {
		Data planResponse `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data.MonthlyMessageCap != 0 {
		t.Fatalf("cap = %d, want 0 for unlimited", envelope.Data.MonthlyMessageCap)
	}
	if !envelope.Data.BrandVoice || !envelope.Data.FollowUp {
		t.Fatalf("pro features missing: %+v", envelope.Data)
	}
}

func TestGetPlanRequiresMerchantContext(t *testing.T) {
	svc := &stubMerchantsService{}
	resp := httptest.NewRecorder()
	GetPlan(svc, testLogger())(resp, httptest.NewRequest(http.MethodGet, "/api/v1/plan", nil))

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.Code)
	}
}
