package plans

import (
	"github.com/shopspring/decimal"

	"github.com/replyflow/replyflow-backend/pkg/enums"
	pkgerrors "github.com/replyflow/replyflow-backend/pkg/errors"
)

// Plan is the immutable descriptor for a subscription tier. Capability gating
// everywhere in the pipeline reads from this one table.
type Plan struct {
	Tier              enums.PlanTier
	MonthlyMessageCap int // 0 means unlimited
	MonthlyPriceUSD   decimal.Decimal
	CommentAutomation bool
	Conversational    bool
	BrandVoice        bool
	FollowUp          bool
}

var byTier = map[enums.PlanTier]Plan{
	enums.PlanTierFree: {
		Tier:              enums.PlanTierFree,
		MonthlyMessageCap: 50,
		MonthlyPriceUSD:   decimal.Zero,
		CommentAutomation: true,
		Conversational:    false,
		BrandVoice:        false,
		FollowUp:          false,
	},
	enums.PlanTierGrowth: {
		Tier:              enums.PlanTierGrowth,
		MonthlyMessageCap: 1000,
		MonthlyPriceUSD:   decimal.NewFromInt(29),
		CommentAutomation: true,
		Conversational:    true,
		BrandVoice:        false,
		FollowUp:          false,
	},
	enums.PlanTierPro: {
		Tier:              enums.PlanTierPro,
		MonthlyMessageCap: 0,
		MonthlyPriceUSD:   decimal.NewFromInt(99),
		CommentAutomation: true,
		Conversational:    true,
		BrandVoice:        true,
		FollowUp:          true,
	},
}

// Lookup returns the descriptor for the given tier.
func Lookup(tier enums.PlanTier) (Plan, error) {
	plan, ok := byTier[tier]
	if !ok {
		return Plan{}, pkgerrors.New(pkgerrors.CodeValidation, "unknown plan tier")
	}
	return plan, nil
}

// All returns every descriptor ordered free to pro.
func All() []Plan {
	return []Plan{
		byTier[enums.PlanTierFree],
		byTier[enums.PlanTierGrowth],
		byTier[enums.PlanTierPro],
	}
}
