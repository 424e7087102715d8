package config

import (
	"fmt"
	"math"

	"github.com/iwvelando/reorder-policy/internal/solver"
	"github.com/iwvelando/reorder-policy/pkg/constants"
)

// SolverConfig controls the convergence test of the iteration.
type SolverConfig struct {
	Tolerance     float64 `yaml:"tolerance,omitempty" mapstructure:"tolerance"`
	MaxIterations int     `yaml:"maxIterations,omitempty" mapstructure:"maxIterations"`
}

// Normalize ensures defaults are applied before validation.
func (s *SolverConfig) Normalize() {
	if s == nil {
		return
	}
	if s.Tolerance == 0 {
		s.Tolerance = constants.DefaultTolerance
	}
	if s.MaxIterations == 0 {
		s.MaxIterations = constants.DefaultMaxIterations
	}
}

// Validate returns an error when the solver configuration is unusable.
func (s *SolverConfig) Validate() error {
	if s == nil {
		return fmt.Errorf("solver configuration cannot be nil")
	}

	s.Normalize()

	if math.IsNaN(s.Tolerance) || s.Tolerance < constants.MinTolerance || s.Tolerance > constants.MaxTolerance {
		return fmt.Errorf("solver tolerance %g must be between %g and %g",
			s.Tolerance, constants.MinTolerance, constants.MaxTolerance)
	}
	if s.MaxIterations < 1 || s.MaxIterations > constants.MaxIterationsLimit {
		return fmt.Errorf("solver maxIterations %d must be between 1 and %d",
			s.MaxIterations, constants.MaxIterationsLimit)
	}
	return nil
}

// Options converts the configuration into solver options.
func (s SolverConfig) Options() solver.Options {
	return solver.Options{Tolerance: s.Tolerance, MaxIterations: s.MaxIterations}
}
