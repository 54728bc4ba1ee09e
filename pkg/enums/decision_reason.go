package enums

// DecisionReason explains a suppress or clarify outcome for operator audit.
type DecisionReason string

const (
	ReasonLowConfidence      DecisionReason = "low_confidence"
	ReasonIntentNotEligible  DecisionReason = "intent_not_eligible"
	ReasonAutomationDisabled DecisionReason = "automation_disabled"
	ReasonNoProductContext   DecisionReason = "no_product_context"
	ReasonMonthlyCapReached  DecisionReason = "monthly_cap_reached"
	ReasonMerchantInactive   DecisionReason = "merchant_inactive"
	ReasonDuplicateEvent     DecisionReason = "duplicate_event"
	ReasonClassifierFailed   DecisionReason = "classifier_failed"
	ReasonUnhandled          DecisionReason = "unhandled"
)

var validDecisionReasons = []DecisionReason{
	ReasonLowConfidence,
	ReasonIntentNotEligible,
	ReasonAutomationDisabled,
	ReasonNoProductContext,
	ReasonMonthlyCapReached,
	ReasonMerchantInactive,
	ReasonDuplicateEvent,
	ReasonClassifierFailed,
	ReasonUnhandled,
}

// String implements fmt.Stringer.
func (r DecisionReason) String() string {
	return string(r)
}

// IsValid reports whether the value is known.
func (r DecisionReason) IsValid() bool {
	for _, candidate := range validDecisionReasons {
		if candidate == r {
			return true
		}
	}
	return false
}
