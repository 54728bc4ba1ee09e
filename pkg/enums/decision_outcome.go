package enums

// DecisionOutcome is what the decision engine chose to do with an event.
type DecisionOutcome string

const (
	DecisionSend          DecisionOutcome = "send"
	DecisionAskClarifying DecisionOutcome = "ask_clarifying"
	DecisionSuppress      DecisionOutcome = "suppress"
)

var validDecisionOutcomes = []DecisionOutcome{
	DecisionSend,
	DecisionAskClarifying,
	DecisionSuppress,
}

// String implements fmt.Stringer.
func (o DecisionOutcome) String() string {
	return string(o)
}

// IsValid reports whether the value is known.
func (o DecisionOutcome) IsValid() bool {
	for _, candidate := range validDecisionOutcomes {
		if candidate == o {
			return true
		}
	}
	return false
}
