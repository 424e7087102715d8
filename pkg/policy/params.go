// Package policy implements the cost and demand formulas of the continuous
// review (Q, R) inventory model with backordering.
package policy

import (
	"errors"
	"fmt"
	"math"

	"github.com/iwvelando/reorder-policy/pkg/constants"
)

// ErrInvalidParams is returned when a parameter set would make a formula
// undefined.
var ErrInvalidParams = errors.New("policy: invalid parameters")

// Params holds the inputs of one policy computation. It is passed by value and
// never modified by the formulas.
type Params struct {
	UnitCost          float64 `json:"unitCost" yaml:"unitCost" mapstructure:"unitCost"`
	PenaltyCost       float64 `json:"penaltyCost" yaml:"penaltyCost" mapstructure:"penaltyCost"`
	SetupCost         float64 `json:"setupCost" yaml:"setupCost" mapstructure:"setupCost"`
	InterestRate      float64 `json:"interestRate" yaml:"interestRate" mapstructure:"interestRate"` // percent per year
	LeadDemand        float64 `json:"leadDemand" yaml:"leadDemand" mapstructure:"leadDemand"`
	LeadTime          float64 `json:"leadTime" yaml:"leadTime" mapstructure:"leadTime"` // months
	StandardDeviation float64 `json:"standardDeviation" yaml:"standardDeviation" mapstructure:"standardDeviation"`
}

// DefaultParams returns the stock example parameter set.
func DefaultParams() Params {
	return Params{
		UnitCost:          constants.DefaultUnitCost,
		PenaltyCost:       constants.DefaultPenaltyCost,
		SetupCost:         constants.DefaultSetupCost,
		InterestRate:      constants.DefaultInterestRate,
		LeadDemand:        constants.DefaultLeadDemand,
		LeadTime:          constants.DefaultLeadTime,
		StandardDeviation: constants.DefaultStandardDeviation,
	}
}

// NewParams validates p and returns it unchanged on success.
func NewParams(p Params) (Params, error) {
	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}

// Validate rejects parameter sets for which the formulas would divide by zero
// or produce NaN/Inf.
func (p Params) Validate() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"unitCost", p.UnitCost},
		{"penaltyCost", p.PenaltyCost},
		{"setupCost", p.SetupCost},
		{"interestRate", p.InterestRate},
		{"leadDemand", p.LeadDemand},
		{"leadTime", p.LeadTime},
		{"standardDeviation", p.StandardDeviation},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return fmt.Errorf("%w: %s must be finite, got %v", ErrInvalidParams, f.name, f.value)
		}
		if f.value <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %v", ErrInvalidParams, f.name, f.value)
		}
	}

	// Products of tiny positive inputs can still underflow to zero.
	if p.HoldingCost() == 0 {
		return fmt.Errorf("%w: holding cost underflows to zero (unitCost=%v, interestRate=%v)",
			ErrInvalidParams, p.UnitCost, p.InterestRate)
	}
	if d := p.AnnualDemand(); d == 0 || math.IsInf(d, 0) {
		return fmt.Errorf("%w: annual demand is %v (leadDemand=%v, leadTime=%v)",
			ErrInvalidParams, d, p.LeadDemand, p.LeadTime)
	}
	return nil
}

// String mirrors the parameter listing printed at startup.
func (p Params) String() string {
	return fmt.Sprintf("unitCost=%g, penaltyCost=%g, setupCost=%g, interestRate=%g, leadDemand=%g, leadTime=%g, standardDeviation=%g",
		p.UnitCost, p.PenaltyCost, p.SetupCost, p.InterestRate, p.LeadDemand, p.LeadTime, p.StandardDeviation)
}
