package solver

import (
	"fmt"

	"github.com/iwvelando/reorder-policy/pkg/policy"
)

// Summary lists the derived quantities of a parameter set together with the
// first two steps of the iteration.
type Summary struct {
	AnnualDemand          float64 `json:"annualDemand"`
	HoldingCost           float64 `json:"holdingCost"`
	EconomicOrderQuantity float64 `json:"economicOrderQuantity"`
	FillRate              float64 `json:"fillRate"`
	SafetyFactor          float64 `json:"safetyFactor"`
	ReorderPoint          float64 `json:"reorderPoint"`
	TotalCost             float64 `json:"totalCost"`
	NextOrderQuantity     float64 `json:"nextOrderQuantity"`
	NextReorderPoint      float64 `json:"nextReorderPoint"`
}

// Summarize evaluates the formulas at the economic order quantity and takes
// one iteration step from there.
func Summarize(params policy.Params) (Summary, error) {
	if err := params.Validate(); err != nil {
		return Summary{}, err
	}

	eoq := params.EconomicOrderQuantity()
	z0, err := params.SafetyFactor(eoq)
	if err != nil {
		return Summary{}, fmt.Errorf("step 0: %w", err)
	}
	q1 := params.OrderQuantity(z0)
	z1, err := params.SafetyFactor(q1)
	if err != nil {
		return Summary{}, fmt.Errorf("step 1: %w", err)
	}

	return Summary{
		AnnualDemand:          params.AnnualDemand(),
		HoldingCost:           params.HoldingCost(),
		EconomicOrderQuantity: eoq,
		FillRate:              params.FillRate(eoq),
		SafetyFactor:          z0,
		ReorderPoint:          params.ReorderPoint(z0),
		TotalCost:             params.TotalCost(eoq),
		NextOrderQuantity:     q1,
		NextReorderPoint:      params.ReorderPoint(z1),
	}, nil
}
