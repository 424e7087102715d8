// Package solver drives the fixed-point iteration between the order quantity
// Q and the reorder point R of a (Q, R) inventory policy.
package solver

import (
	"errors"
	"fmt"
	"iter"
	"math"

	"github.com/iwvelando/reorder-policy/pkg/constants"
	"github.com/iwvelando/reorder-policy/pkg/mathutil"
	"github.com/iwvelando/reorder-policy/pkg/policy"
	"go.uber.org/zap"
)

var (
	// ErrNonConvergence is returned when the iteration cap is reached before
	// both Q and R settle within the tolerance.
	ErrNonConvergence = errors.New("solver: iteration did not converge")

	// ErrNonFinite is returned when an iterate becomes NaN or infinite.
	ErrNonFinite = errors.New("solver: non-finite iterate")
)

// Phase is the position of a State in the iteration.
type Phase int

const (
	// PhaseInit marks step 0, seeded from the economic order quantity.
	PhaseInit Phase = iota
	// PhaseIterating marks an intermediate step.
	PhaseIterating
	// PhaseConverged marks the terminal step.
	PhaseConverged
)

func (p Phase) String() string {
	switch p {
	case PhaseInit:
		return "init"
	case PhaseIterating:
		return "iterating"
	case PhaseConverged:
		return "converged"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes a phase name.
func (p *Phase) UnmarshalText(text []byte) error {
	switch string(text) {
	case "init":
		*p = PhaseInit
	case "iterating":
		*p = PhaseIterating
	case "converged":
		*p = PhaseConverged
	default:
		return fmt.Errorf("unknown phase %q", text)
	}
	return nil
}

// State is one record of the solver trace.
type State struct {
	Iteration     int     `json:"iteration"`
	Phase         Phase   `json:"phase"`
	OrderQuantity float64 `json:"orderQuantity"`
	ReorderPoint  float64 `json:"reorderPoint"`
	SafetyFactor  float64 `json:"safetyFactor"`
	TotalCost     float64 `json:"totalCost"`
}

// Options controls convergence. Zero values select the defaults.
//
// Tolerance is absolute. When Q or R is large enough that adjacent float64
// values are farther apart than Tolerance (around 1e7 for the default 1e-9),
// only an exact fixed point satisfies the test and the run may end in
// ErrNonConvergence.
type Options struct {
	Tolerance     float64 `json:"tolerance" yaml:"tolerance" mapstructure:"tolerance"`
	MaxIterations int     `json:"maxIterations" yaml:"maxIterations" mapstructure:"maxIterations"`
}

// DefaultOptions returns the default tolerance and iteration cap.
func DefaultOptions() Options {
	return Options{
		Tolerance:     constants.DefaultTolerance,
		MaxIterations: constants.DefaultMaxIterations,
	}
}

func (o Options) normalized() Options {
	if o.Tolerance <= 0 || math.IsNaN(o.Tolerance) || math.IsInf(o.Tolerance, 0) {
		o.Tolerance = constants.DefaultTolerance
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = constants.DefaultMaxIterations
	}
	return o
}

func newState(params policy.Params, iteration int, phase Phase, q, z float64) State {
	return State{
		Iteration:     iteration,
		Phase:         phase,
		OrderQuantity: q,
		ReorderPoint:  params.ReorderPoint(z),
		SafetyFactor:  z,
		TotalCost:     params.TotalCost(q),
	}
}

func checkFinite(s State) error {
	if !mathutil.IsFinite(s.OrderQuantity, s.ReorderPoint, s.SafetyFactor, s.TotalCost) {
		return fmt.Errorf("%w at step %d: Q=%v R=%v z=%v", ErrNonFinite, s.Iteration, s.OrderQuantity, s.ReorderPoint, s.SafetyFactor)
	}
	return nil
}

// Steps returns the solver trace as a lazy sequence. Each element is either a
// State with a nil error, or a zero State with the error that ended the run.
// The sequence ends after a PhaseConverged state or after an error, and can be
// ranged over any number of times with identical results.
func Steps(params policy.Params, opts Options) iter.Seq2[State, error] {
	opts = opts.normalized()
	return func(yield func(State, error) bool) {
		if err := params.Validate(); err != nil {
			yield(State{}, err)
			return
		}

		q := params.EconomicOrderQuantity()
		z, err := params.SafetyFactor(q)
		if err != nil {
			yield(State{}, fmt.Errorf("step 0: %w", err))
			return
		}
		prev := newState(params, 0, PhaseInit, q, z)
		if err := checkFinite(prev); err != nil {
			yield(State{}, err)
			return
		}
		if !yield(prev, nil) {
			return
		}

		var dq, dr float64
		for i := 1; i <= opts.MaxIterations; i++ {
			q := params.OrderQuantity(prev.SafetyFactor)
			z, err := params.SafetyFactor(q)
			if err != nil {
				yield(State{}, fmt.Errorf("step %d: %w", i, err))
				return
			}
			cur := newState(params, i, PhaseIterating, q, z)
			if err := checkFinite(cur); err != nil {
				yield(State{}, err)
				return
			}

			if mathutil.Converged(prev.OrderQuantity, cur.OrderQuantity, opts.Tolerance) &&
				mathutil.Converged(prev.ReorderPoint, cur.ReorderPoint, opts.Tolerance) {
				cur.Phase = PhaseConverged
				yield(cur, nil)
				return
			}
			if !yield(cur, nil) {
				return
			}
			dq = math.Abs(cur.OrderQuantity - prev.OrderQuantity)
			dr = math.Abs(cur.ReorderPoint - prev.ReorderPoint)
			prev = cur
		}

		yield(State{}, fmt.Errorf("%w after %d iterations (|dQ|=%g, |dR|=%g, tolerance %g)",
			ErrNonConvergence, opts.MaxIterations, dq, dr, opts.Tolerance))
	}
}

// Result is a completed solver run.
type Result struct {
	Params    policy.Params `json:"params"`
	Options   Options       `json:"options"`
	Summary   Summary       `json:"summary"`
	Trace     []State       `json:"trace"`
	Converged bool          `json:"converged"`
}

// Final returns the last state of the trace.
func (r *Result) Final() State {
	if r == nil || len(r.Trace) == 0 {
		return State{}
	}
	return r.Trace[len(r.Trace)-1]
}

// Iterations is the index of the last step.
func (r *Result) Iterations() int {
	return r.Final().Iteration
}

// FillRate is the fill-rate target at the final order quantity.
func (r *Result) FillRate() float64 {
	return r.Params.FillRate(r.Final().OrderQuantity)
}

// Solve runs the iteration to completion. On failure the partial trace is
// returned with the error for diagnostics.
func Solve(logger *zap.Logger, params policy.Params, opts Options) (*Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts = opts.normalized()

	result := &Result{Params: params, Options: opts}
	// A failing summary fails the same way in Steps below.
	if summary, err := Summarize(params); err == nil {
		result.Summary = summary
	}

	for state, err := range Steps(params, opts) {
		if err != nil {
			return result, err
		}
		logger.Debug("solver step",
			zap.String("op", "solver.Solve"),
			zap.Int("iteration", state.Iteration),
			zap.Stringer("phase", state.Phase),
			zap.Float64("Q", state.OrderQuantity),
			zap.Float64("R", state.ReorderPoint),
			zap.Float64("z", state.SafetyFactor),
			zap.Float64("totalCost", state.TotalCost),
		)
		result.Trace = append(result.Trace, state)
	}
	result.Converged = true

	final := result.Final()
	logger.Info("reorder policy converged",
		zap.String("op", "solver.Solve"),
		zap.Int("iterations", final.Iteration),
		zap.Float64("Q", final.OrderQuantity),
		zap.Float64("R", final.ReorderPoint),
		zap.Float64("z", final.SafetyFactor),
		zap.Float64("totalCost", final.TotalCost),
		zap.Float64("tolerance", opts.Tolerance),
	)
	return result, nil
}
