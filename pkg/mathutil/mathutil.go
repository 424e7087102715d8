// Package mathutil provides common mathematical utility functions.
package mathutil

import "math"

// RoundTo rounds a value to the given number of decimal places.
func RoundTo(val float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(val*scale) / scale
}

// Converged reports whether two successive iterates differ by strictly less
// than tolerance.
func Converged(previous, current, tolerance float64) bool {
	return math.Abs(current-previous) < tolerance
}

// IsFinite reports whether every value is neither NaN nor infinite.
func IsFinite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
