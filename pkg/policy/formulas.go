package policy

import (
	"fmt"
	"math"

	"github.com/iwvelando/reorder-policy/pkg/constants"
	"github.com/iwvelando/reorder-policy/pkg/normal"
)

// AnnualDemand converts the lead-time demand into demand per year (D).
func (p Params) AnnualDemand() float64 {
	return constants.MonthsPerYear / p.LeadTime * p.LeadDemand
}

// HoldingCost is the cost of carrying one unit for a year (H).
func (p Params) HoldingCost() float64 {
	return p.UnitCost * p.InterestRate / constants.PercentageMultiplier
}

// EconomicOrderQuantity is the classic EOQ, sqrt(2DS/H). It ignores
// shortages and seeds the iteration.
func (p Params) EconomicOrderQuantity() float64 {
	return math.Sqrt(2 * p.AnnualDemand() * p.SetupCost / p.HoldingCost())
}

// FillRate is the target probability of no stockout during a lead time when
// ordering q units at a time.
func (p Params) FillRate(q float64) float64 {
	return 1 - (q*p.HoldingCost())/(p.PenaltyCost*p.AnnualDemand())
}

// SafetyFactor returns z such that CDF(z) equals FillRate(q). It fails with
// normal.ErrDomain when the fill rate is not a probability.
func (p Params) SafetyFactor(q float64) (float64, error) {
	f := p.FillRate(q)
	z, err := normal.Quantile(f)
	if err != nil {
		return 0, fmt.Errorf("safety factor for Q=%v: fill rate %v: %w", q, f, err)
	}
	return z, nil
}

// StandardLoss is the expected shortfall beyond z, in standard deviations.
func StandardLoss(z float64) float64 {
	return normal.PDF(z) - z*normal.Survival(z)
}

// LostSales is the expected number of units short per cycle at safety factor z.
func (p Params) LostSales(z float64) float64 {
	return StandardLoss(z) * p.StandardDeviation
}

// OrderQuantity is the order size that balances setup, holding and expected
// shortage cost at safety factor z.
func (p Params) OrderQuantity(z float64) float64 {
	return math.Sqrt(2 * p.AnnualDemand() * (p.SetupCost + p.PenaltyCost*p.LostSales(z)) / p.HoldingCost())
}

// TotalCost is the annual ordering plus holding cost of ordering q units at a time.
func (p Params) TotalCost(q float64) float64 {
	return p.AnnualDemand()/q*p.SetupCost + q/2*p.HoldingCost()
}

// ReorderPoint is the inventory position that triggers an order.
func (p Params) ReorderPoint(z float64) float64 {
	return p.LeadDemand + p.SafetyStock(z)
}

// SafetyStock is the buffer held above the expected lead-time demand.
func (p Params) SafetyStock(z float64) float64 {
	return z * p.StandardDeviation
}
