package controllers

import (
	"net/http"
	"time"

	"github.com/replyflow/replyflow-backend/api/responses"
	"github.com/replyflow/replyflow-backend/internal/merchants"
	"github.com/replyflow/replyflow-backend/internal/plans"
	pkgerrors "github.com/replyflow/replyflow-backend/pkg/errors"
	"github.com/replyflow/replyflow-backend/pkg/logger"
)

type planResponse struct {
	Tier              string     `json:"tier"`
	MonthlyMessageCap int        `json:"monthly_message_cap"`
	MonthlyPriceUSD   string     `json:"monthly_price_usd"`
	CommentAutomation bool       `json:"comment_automation"`
	Conversational    bool       `json:"conversational"`
	BrandVoice        bool       `json:"brand_voice"`
	FollowUp          bool       `json:"follow_up"`
	StorefrontDomain  string     `json:"storefront_domain"`
	Active            bool       `json:"active"`
	InstalledAt       time.Time  `json:"installed_at"`
	UninstalledAt     *time.Time `json:"uninstalled_at,omitempty"`
}

// GetPlan reports the merchant's current tier and its capabilities. A cap of
// zero means unlimited.
func GetPlan(svc merchants.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "merchant service unavailable"))
			return
		}
		merchantID, err := merchantFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		merchant, err := svc.Get(ctx, merchantID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		plan, err := plans.Lookup(merchant.PlanTier)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, planResponse{
			Tier:              string(plan.Tier),
			MonthlyMessageCap: plan.MonthlyMessageCap,
			MonthlyPriceUSD:   plan.MonthlyPriceUSD.StringFixed(2),
			CommentAutomation: plan.CommentAutomation,
			Conversational:    plan.Conversational,
			BrandVoice:        plan.BrandVoice,
			FollowUp:          plan.FollowUp,
			StorefrontDomain:  merchant.StorefrontDomain,
			Active:            merchant.Active,
			InstalledAt:       merchant.InstalledAt,
			UninstalledAt:     merchant.UninstalledAt,
		})
	}
}
