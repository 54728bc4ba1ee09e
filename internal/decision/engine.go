package decision

import (
	"github.com/replyflow/replyflow-backend/internal/plans"
	"github.com/replyflow/replyflow-backend/pkg/db/models"
	"github.com/replyflow/replyflow-backend/pkg/enums"
)

// ConfidenceThreshold is the floor below which a classification is never
// acted on.
const ConfidenceThreshold = 0.70

// Input carries everything the engine needs; the engine itself does no I/O.
type Input struct {
	Channel        enums.Channel
	Intent         enums.Intent
	Confidence     float64
	Plan           plans.Plan
	ChannelEnabled bool
	PostEnabled    bool
	Mapping        *models.ProductMapping
}

// Decision is the engine's verdict for one inbound event.
type Decision struct {
	Outcome enums.DecisionOutcome
	Reason  enums.DecisionReason
	Mapping *models.ProductMapping
}

// Decide walks the decision table in order; the first matching rule wins.
// DMs never resolve a product mapping, so a product-specific DM either gets
// a clarifying question (follow_up capability) or is suppressed.
func Decide(in Input) Decision {
	if in.Confidence < ConfidenceThreshold {
		return Decision{Outcome: enums.DecisionSuppress, Reason: enums.ReasonLowConfidence}
	}
	if !in.Intent.IsEligible() {
		return Decision{Outcome: enums.DecisionSuppress, Reason: enums.ReasonIntentNotEligible}
	}
	if !in.ChannelEnabled || !in.PostEnabled {
		return Decision{Outcome: enums.DecisionSuppress, Reason: enums.ReasonAutomationDisabled}
	}
	if in.Intent == enums.IntentStoreQuestion {
		return Decision{Outcome: enums.DecisionSend}
	}
	if in.Intent.IsProductSpecific() {
		if in.Channel == enums.ChannelComment && in.Mapping != nil {
			return Decision{Outcome: enums.DecisionSend, Mapping: in.Mapping}
		}
		if in.Plan.FollowUp {
			return Decision{Outcome: enums.DecisionAskClarifying}
		}
		return Decision{Outcome: enums.DecisionSuppress, Reason: enums.ReasonNoProductContext}
	}
	return Decision{Outcome: enums.DecisionSuppress, Reason: enums.ReasonUnhandled}
}
