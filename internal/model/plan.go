package model

// Plan is static reference data shown on the plan selection page.
type Plan struct {
	ID            PlanID   `json:"id"`
	Name          string   `json:"name"`
	Price         int64    `json:"price"` // minor units (paise)
	OriginalPrice int64    `json:"original_price,omitempty"`
	Duration      string   `json:"duration"`
	Downloads     string   `json:"downloads"`
	Features      []string `json:"features"`
	Popular       bool     `json:"popular,omitempty"`
	Savings       string   `json:"savings,omitempty"`
}

var plans = []Plan{
	{
		ID:        PlanMonthly,
		Name:      "Monthly",
		Price:     999,
		Duration:  "per month",
		Downloads: "Unlimited",
		Features: []string{
			"3 free downloads to try",
			"Then unlimited downloads",
			"Access to all templates",
			"Priority support",
			"New templates first",
		},
	},
	{
		ID:            PlanQuarterly,
		Name:          "Quarterly",
		Price:         2499,
		OriginalPrice: 2997,
		Duration:      "per 3 months",
		Downloads:     "Unlimited",
		Popular:       true,
		Savings:       "Save 17%",
		Features: []string{
			"3 free downloads to try",
			"Download counter resets quarterly",
			"Everything in Monthly",
			"Advanced templates",
			"Custom template requests",
		},
	},
	{
		ID:            PlanYearly,
		Name:          "Yearly",
		Price:         7999,
		OriginalPrice: 11988,
		Duration:      "per year",
		Downloads:     "Unlimited",
		Savings:       "Save 33%",
		Features: []string{
			"3 free downloads to try",
			"Then unlimited downloads",
			"Everything in Quarterly",
			"Exclusive premium templates",
		},
	},
}

// Plans returns a copy of the plan catalog.
func Plans() []Plan {
	out := make([]Plan, len(plans))
	copy(out, plans)
	return out
}

// LookupPlan returns the plan for id.
func LookupPlan(id PlanID) (Plan, bool) {
	for _, p := range plans {
		if p.ID == id {
			return p, true
		}
	}
	return Plan{}, false
}

// PremiumDisplayName is the label used for a plan on the dashboard.
func PremiumDisplayName(c PlanChoice) string {
	id, ok := c.Plan()
	if !ok {
		return "Free Trial"
	}
	switch id {
	case PlanMonthly:
		return "Monthly Premium"
	case PlanQuarterly:
		return "Quarterly Premium"
	case PlanYearly:
		return "Yearly Premium"
	}
	return "Free Trial"
}
