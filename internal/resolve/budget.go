package resolve

import "github.com/whimapp/discovery-cli/internal/filter"

// BudgetResolver maps the budget band to provider price tiers (0–4).
type BudgetResolver struct{}

// Band returns the inclusive price-tier range for a budget. Unset budgets
// accept everything.
func (BudgetResolver) Band(b filter.Budget) (min, max int) {
	switch b {
	case filter.BudgetLow:
		return 0, 1
	case filter.BudgetMid:
		return 1, 2
	case filter.BudgetHigh:
		return 2, 4
	default:
		return 0, 4
	}
}

// InBand reports whether a candidate price tier falls inside the budget band.
// Candidates with no price data pass: absence of data is not a mismatch.
func (r BudgetResolver) InBand(b filter.Budget, priceTier *int) bool {
	if priceTier == nil {
		return true
	}
	min, max := r.Band(b)
	return *priceTier >= min && *priceTier <= max
}

// PreferredPlaceTypes is empty: budget constrains price, not place type.
func (BudgetResolver) PreferredPlaceTypes(filter.Budget) []string { return nil }

// Weight makes budget the strictest relaxable dimension.
func (BudgetResolver) Weight(b filter.Budget) float64 {
	if b == filter.BudgetUnset {
		return 0
	}
	return 0.6
}

// RelaxationRank places budget last in the relaxation order.
func (BudgetResolver) RelaxationRank(filter.Budget) int { return RankBudget }

// IsCompatible flags a low budget against the novelty category, which skews
// toward ticketed venues.
func (BudgetResolver) IsCompatible(b filter.Budget, c filter.Category) bool {
	return !(b == filter.BudgetLow && c == filter.CategorySomethingNew)
}
