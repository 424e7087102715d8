// Package testutil provides common utility functions for testing.
package testutil

import (
	"math"

	"github.com/iwvelando/reorder-policy/pkg/policy"
)

// Close reports whether got is within tolerance of expected.
func Close(got, expected, tolerance float64) bool {
	return math.Abs(got-expected) <= tolerance
}

// ParamsWith returns the default parameters after applying modify.
func ParamsWith(modify func(*policy.Params)) policy.Params {
	p := policy.DefaultParams()
	if modify != nil {
		modify(&p)
	}
	return p
}

// DefaultConfigYAML is a complete configuration file using the stock parameters.
const DefaultConfigYAML = `policy:
  unitCost: 20
  penaltyCost: 20
  setupCost: 100
  interestRate: 25
  leadDemand: 500
  leadTime: 4
  standardDeviation: 100
solver:
  tolerance: 1e-9
  maxIterations: 500
logging:
  level: info
  format: json
output:
  format: pretty
`
