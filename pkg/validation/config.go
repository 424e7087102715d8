package validation

import (
	"fmt"
	"math"

	"github.com/iwvelando/reorder-policy/pkg/policy"
)

// PolicyWarnings flags parameter sets that are valid but likely to fail or to
// misrepresent demand. It assumes p has passed policy.Params.Validate.
func PolicyWarnings(p policy.Params) []string {
	var warnings []string

	eoq := p.EconomicOrderQuantity()
	if f := p.FillRate(eoq); f <= 0 {
		warnings = append(warnings, fmt.Sprintf(
			"fill rate at EOQ is %.4f; penaltyCost %.2f is too small for holding cost %.2f and annual demand %.2f, the solver will fail",
			f, p.PenaltyCost, p.HoldingCost(), p.AnnualDemand()))
	} else if f < 0.5 {
		warnings = append(warnings, fmt.Sprintf(
			"fill rate at EOQ is %.4f; the reorder point starts below the expected lead-time demand", f))
	}

	if p.StandardDeviation > p.LeadDemand/2 {
		warnings = append(warnings, fmt.Sprintf(
			"standardDeviation %.2f exceeds half the lead demand %.2f; the normal demand model puts noticeable weight on negative demand",
			p.StandardDeviation, p.LeadDemand))
	}

	if p.InterestRate > 100 {
		warnings = append(warnings, fmt.Sprintf(
			"interestRate %.2f is a percentage; values above 100 mean holding cost exceeds unit cost", p.InterestRate))
	}

	if p.LeadTime > 12 {
		warnings = append(warnings, fmt.Sprintf(
			"leadTime %.2f months exceeds a year; annual demand will be smaller than lead demand", p.LeadTime))
	}

	return warnings
}

// PrecisionWarning reports when the float64 spacing at the scale of Q or R
// is not below tolerance, so the absolute convergence test can only be met by
// an exact fixed point. It assumes p has passed policy.Params.Validate.
func PrecisionWarning(p policy.Params, tolerance float64) []string {
	magnitude := math.Max(p.EconomicOrderQuantity(), p.LeadDemand+4*p.StandardDeviation)
	spacing := math.Nextafter(magnitude, math.Inf(1)) - magnitude
	if spacing < tolerance {
		return nil
	}
	return []string{fmt.Sprintf(
		"Q or R near %.4g has float64 spacing %.3g, not below solver tolerance %g; convergence needs an exact fixed point, raise the tolerance",
		magnitude, spacing, tolerance)}
}
