// Package normal provides the standard normal distribution functions used by
// the inventory formulas.
package normal

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// ErrDomain is returned when a probability lies outside the open interval (0, 1).
var ErrDomain = errors.New("normal: probability outside (0, 1)")

// CDF returns P(X <= x) for a standard normal X.
func CDF(x float64) float64 {
	return distuv.UnitNormal.CDF(x)
}

// PDF returns the standard normal density at x.
func PDF(x float64) float64 {
	return distuv.UnitNormal.Prob(x)
}

// Quantile returns the x for which CDF(x) == p. The bounds 0 and 1 are
// rejected because their quantiles are infinite.
func Quantile(p float64) (float64, error) {
	if math.IsNaN(p) || p <= 0 || p >= 1 {
		return 0, fmt.Errorf("%w: %v", ErrDomain, p)
	}
	return distuv.UnitNormal.Quantile(p), nil
}

// Survival returns P(X > x), computed directly to keep precision in the
// upper tail.
func Survival(x float64) float64 {
	return distuv.UnitNormal.Survival(x)
}
