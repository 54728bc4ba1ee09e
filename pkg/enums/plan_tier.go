package enums

// PlanTier names the subscription tier a merchant is on.
type PlanTier string

const (
	PlanTierFree   PlanTier = "FREE"
	PlanTierGrowth PlanTier = "GROWTH"
	PlanTierPro    PlanTier = "PRO"
)

var validPlanTiers = []PlanTier{
	PlanTierFree,
	PlanTierGrowth,
	PlanTierPro,
}

// String implements fmt.Stringer.
func (t PlanTier) String() string {
	return string(t)
}

// IsValid reports whether the value is known.
func (t PlanTier) IsValid() bool {
	for _, candidate := range validPlanTiers {
		if candidate == t {
			return true
		}
	}
	return false
}
