package plans

import (
	"testing"

	"github.com/replyflow/replyflow-backend/pkg/enums"
)

func TestLookupKnownTiers(t *testing.T) {
	free, err := Lookup(enums.PlanTierFree)
	if err != nil {
		t.Fatalf("Lookup free: %v", err)
	}
	if free.FollowUp {
		t.Fatalf("free tier must not carry follow_up")
	}
	if !free.MonthlyPriceUSD.IsZero() {
		t.Fatalf("free tier must be priced at zero")
	}

	growth, err := Lookup(enums.PlanTierGrowth)
	if err != nil {
		t.Fatalf("Lookup growth: %v", err)
	}
	if growth.FollowUp {
		t.Fatalf("growth tier must not carry follow_up")
	}
	if !growth.Conversational {
		t.Fatalf("growth tier should be conversational")
	}

	pro, err := Lookup(enums.PlanTierPro)
	if err != nil {
		t.Fatalf("Lookup pro: %v", err)
	}
	if !pro.FollowUp || !pro.BrandVoice {
		t.Fatalf("pro tier should carry follow_up and brand voice")
	}
	if pro.MonthlyMessageCap != 0 {
		t.Fatalf("pro tier should be uncapped")
	}
}

func TestLookupUnknownTier(t *testing.T) {
	if _, err := Lookup(enums.PlanTier("ENTERPRISE")); err == nil {
		t.Fatalf("expected error for unknown tier")
	}
}

func TestAllOrdered(t *testing.T) {
	all := All()
	if len(all) != 3 {
		t.Fatalf("expected 3 plans, got %d", len(all))
	}
	if all[0].Tier != enums.PlanTierFree || all[2].Tier != enums.PlanTierPro {
		t.Fatalf("unexpected ordering: %v", all)
	}
}
