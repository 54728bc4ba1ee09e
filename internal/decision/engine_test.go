package decision

import (
	"testing"

	"github.com/replyflow/replyflow-backend/internal/plans"
	"github.com/replyflow/replyflow-backend/pkg/db/models"
	"github.com/replyflow/replyflow-backend/pkg/enums"
)

func mustPlan(t *testing.T, tier enums.PlanTier) plans.Plan {
	t.Helper()
	plan, err := plans.Lookup(tier)
	if err != nil {
		t.Fatalf("lookup plan %s: %v", tier, err)
	}
	return plan
}

func enabledInput(t *testing.T, tier enums.PlanTier) Input {
	t.Helper()
	return Input{
		Channel:        enums.ChannelComment,
		Intent:         enums.IntentProductQuestion,
		Confidence:     0.9,
		Plan:           mustPlan(t, tier),
		ChannelEnabled: true,
		PostEnabled:    true,
	}
}

func TestLowConfidenceAlwaysSuppresses(t *testing.T) {
	// Confidence gates everything, regardless of intent, plan, or mapping.
	for _, tier := range []enums.PlanTier{enums.PlanTierFree, enums.PlanTierGrowth, enums.PlanTierPro} {
		for _, intent := range []enums.Intent{enums.IntentPurchase, enums.IntentStoreQuestion, enums.IntentSpam} {
			in := enabledInput(t, tier)
			in.Intent = intent
			in.Confidence = 0.69
			in.Mapping = &models.ProductMapping{ProductID: "p1", VariantID: "v1"}
			got := Decide(in)
			if got.Outcome != enums.DecisionSuppress || got.Reason != enums.ReasonLowConfidence {
				t.Fatalf("tier=%s intent=%s: got %+v", tier, intent, got)
			}
		}
	}
}

func TestIneligibleIntentsSuppress(t *testing.T) {
	for _, intent := range []enums.Intent{enums.IntentGreeting, enums.IntentComplaint, enums.IntentSpam, enums.IntentOther} {
		in := enabledInput(t, enums.PlanTierPro)
		in.Intent = intent
		got := Decide(in)
		if got.Outcome != enums.DecisionSuppress || got.Reason != enums.ReasonIntentNotEligible {
			t.Fatalf("intent=%s: got %+v", intent, got)
		}
	}
}

func TestAutomationDisabledSuppresses(t *testing.T) {
	in := enabledInput(t, enums.PlanTierPro)
	in.ChannelEnabled = false
	got := Decide(in)
	if got.Outcome != enums.DecisionSuppress || got.Reason != enums.ReasonAutomationDisabled {
		t.Fatalf("channel toggle: got %+v", got)
	}

	in = enabledInput(t, enums.PlanTierPro)
	in.PostEnabled = false
	got = Decide(in)
	if got.Outcome != enums.DecisionSuppress || got.Reason != enums.ReasonAutomationDisabled {
		t.Fatalf("post toggle: got %+v", got)
	}
}

func TestDisabledToggleBeatsMapping(t *testing.T) {
	// Rule order matters: a disabled toggle wins over a resolved mapping.
	in := enabledInput(t, enums.PlanTierPro)
	in.ChannelEnabled = false
	in.Mapping = &models.ProductMapping{ProductID: "p1", VariantID: "v1"}
	got := Decide(in)
	if got.Outcome != enums.DecisionSuppress || got.Reason != enums.ReasonAutomationDisabled {
		t.Fatalf("got %+v", got)
	}
}

func TestStoreQuestionSendsWithoutProduct(t *testing.T) {
	for _, channel := range []enums.Channel{enums.ChannelDM, enums.ChannelComment} {
		in := enabledInput(t, enums.PlanTierFree)
		in.Channel = channel
		in.Intent = enums.IntentStoreQuestion
		got := Decide(in)
		if got.Outcome != enums.DecisionSend {
			t.Fatalf("channel=%s: got %+v", channel, got)
		}
		if got.Mapping != nil {
			t.Fatalf("store question must not carry product context")
		}
	}
}

func TestCommentWithMappingSends(t *testing.T) {
	mapping := &models.ProductMapping{ProductID: "p1", VariantID: "v1"}
	for _, intent := range []enums.Intent{
		enums.IntentPurchase,
		enums.IntentProductQuestion,
		enums.IntentVariantInquiry,
		enums.IntentPriceRequest,
	} {
		in := enabledInput(t, enums.PlanTierFree)
		in.Intent = intent
		in.Mapping = mapping
		got := Decide(in)
		if got.Outcome != enums.DecisionSend {
			t.Fatalf("intent=%s: got %+v", intent, got)
		}
		if got.Mapping != mapping {
			t.Fatalf("intent=%s: mapping not propagated", intent)
		}
	}
}

func TestProductSpecificDMPerTier(t *testing.T) {
	// DMs never carry product context. Only the follow_up capability turns
	// that into a clarifying question; other tiers suppress.
	tests := []struct {
		tier        enums.PlanTier
		wantOutcome enums.DecisionOutcome
		wantReason  enums.DecisionReason
	}{
		{enums.PlanTierFree, enums.DecisionSuppress, enums.ReasonNoProductContext},
		{enums.PlanTierGrowth, enums.DecisionSuppress, enums.ReasonNoProductContext},
		{enums.PlanTierPro, enums.DecisionAskClarifying, ""},
	}
	for _, tt := range tests {
		in := enabledInput(t, tt.tier)
		in.Channel = enums.ChannelDM
		in.Intent = enums.IntentPurchase
		got := Decide(in)
		if got.Outcome != tt.wantOutcome || got.Reason != tt.wantReason {
			t.Fatalf("tier=%s: got %+v", tt.tier, got)
		}
	}
}

func TestCommentWithoutMappingPerTier(t *testing.T) {
	tests := []struct {
		tier        enums.PlanTier
		wantOutcome enums.DecisionOutcome
		wantReason  enums.DecisionReason
	}{
		{enums.PlanTierFree, enums.DecisionSuppress, enums.ReasonNoProductContext},
		{enums.PlanTierGrowth, enums.DecisionSuppress, enums.ReasonNoProductContext},
		{enums.PlanTierPro, enums.DecisionAskClarifying, ""},
	}
	for _, tt := range tests {
		in := enabledInput(t, tt.tier)
		in.Intent = enums.IntentVariantInquiry
		got := Decide(in)
		if got.Outcome != tt.wantOutcome || got.Reason != tt.wantReason {
			t.Fatalf("tier=%s: got %+v", tt.tier, got)
		}
	}
}

func TestDMNeverUsesMapping(t *testing.T) {
	// Even if a caller hands the engine a mapping on a DM, it is ignored.
	in := enabledInput(t, enums.PlanTierFree)
	in.Channel = enums.ChannelDM
	in.Intent = enums.IntentPurchase
	in.Mapping = &models.ProductMapping{ProductID: "p1", VariantID: "v1"}
	got := Decide(in)
	if got.Outcome != enums.DecisionSuppress || got.Reason != enums.ReasonNoProductContext {
		t.Fatalf("got %+v", got)
	}
}

func TestThresholdBoundary(t *testing.T) {
	in := enabledInput(t, enums.PlanTierFree)
	in.Intent = enums.IntentStoreQuestion
	in.Confidence = ConfidenceThreshold
	if got := Decide(in); got.Outcome != enums.DecisionSend {
		t.Fatalf("confidence at threshold should pass the gate: %+v", got)
	}
}
