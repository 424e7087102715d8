package solver

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/iwvelando/reorder-policy/pkg/normal"
	"github.com/iwvelando/reorder-policy/pkg/policy"
	"github.com/iwvelando/reorder-policy/pkg/testutil"
	"go.uber.org/zap"
)

func TestSolveDefaultConfiguration(t *testing.T) {
	result, err := Solve(zap.NewNop(), policy.DefaultParams(), DefaultOptions())
	if err != nil {
		t.Fatalf("Solve() error = %v", err)
	}
	if !result.Converged {
		t.Fatal("expected converged result")
	}

	first := result.Trace[0]
	if first.Iteration != 0 || first.Phase != PhaseInit {
		t.Fatalf("unexpected first state %+v", first)
	}
	if !testutil.Close(first.OrderQuantity, math.Sqrt(60000), 1e-9) {
		t.Fatalf("expected Q0 = sqrt(60000), got %.12f", first.OrderQuantity)
	}
	if !testutil.Close(first.OrderQuantity, 244.95, 0.005) {
		t.Fatalf("expected Q0 near 244.95, got %.4f", first.OrderQuantity)
	}

	final := result.Final()
	if final.Phase != PhaseConverged {
		t.Fatalf("expected final phase converged, got %s", final.Phase)
	}
	if final.Iteration >= 50 {
		t.Fatalf("expected convergence in under 50 steps, took %d", final.Iteration)
	}
	if result.Iterations() != len(result.Trace)-1 {
		t.Fatalf("iterations %d does not match trace length %d", result.Iterations(), len(result.Trace))
	}
	if !testutil.Close(final.OrderQuantity, 290.0108404, 1e-6) {
		t.Errorf("expected converged Q near 290.0108404, got %.9f", final.OrderQuantity)
	}
	if !testutil.Close(final.ReorderPoint, 666.1214970, 1e-6) {
		t.Errorf("expected converged R near 666.1214970, got %.9f", final.ReorderPoint)
	}
	if !testutil.Close(final.SafetyFactor, 1.66121497, 1e-7) {
		t.Errorf("expected converged z near 1.66121497, got %.9f", final.SafetyFactor)
	}
	if !testutil.Close(final.TotalCost, 1242.2491462, 1e-6) {
		t.Errorf("expected total cost near 1242.2491462, got %.9f", final.TotalCost)
	}

	for _, state := range result.Trace {
		expectedR := 500 + state.SafetyFactor*100
		if !testutil.Close(state.ReorderPoint, expectedR, 1e-9) {
			t.Errorf("step %d: R=%v, expected leadDemand + z*sd = %v", state.Iteration, state.ReorderPoint, expectedR)
		}
		if state.OrderQuantity <= 0 {
			t.Errorf("step %d: Q must be positive, got %v", state.Iteration, state.OrderQuantity)
		}
	}

	if !testutil.Close(result.FillRate(), normal.CDF(final.SafetyFactor), 1e-9) {
		t.Errorf("fill rate %v does not match CDF(z) %v", result.FillRate(), normal.CDF(final.SafetyFactor))
	}
}

func TestStepsDoNotDiverge(t *testing.T) {
	result, err := Solve(nil, policy.DefaultParams(), DefaultOptions())
	if err != nil {
		t.Fatalf("Solve() error = %v", err)
	}

	prevDelta := math.Inf(1)
	for i := 1; i < len(result.Trace); i++ {
		delta := math.Abs(result.Trace[i].OrderQuantity - result.Trace[i-1].OrderQuantity)
		if delta > prevDelta+1e-9 {
			t.Fatalf("step %d: |dQ|=%g grew from %g", i, delta, prevDelta)
		}
		prevDelta = delta
	}
}

func TestSolveIsDeterministic(t *testing.T) {
	first, err := Solve(zap.NewNop(), policy.DefaultParams(), DefaultOptions())
	if err != nil {
		t.Fatalf("first Solve() error = %v", err)
	}
	second, err := Solve(zap.NewNop(), policy.DefaultParams(), DefaultOptions())
	if err != nil {
		t.Fatalf("second Solve() error = %v", err)
	}
	if !reflect.DeepEqual(first.Trace, second.Trace) {
		t.Fatal("expected identical traces for identical configuration")
	}
}

func TestStepsRestartable(t *testing.T) {
	seq := Steps(policy.DefaultParams(), Options{})

	collect := func() []State {
		var states []State
		for state, err := range seq {
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			states = append(states, state)
		}
		return states
	}

	a := collect()
	b := collect()
	if len(a) == 0 || !reflect.DeepEqual(a, b) {
		t.Fatalf("expected equal non-empty traces, got %d and %d states", len(a), len(b))
	}
}

func TestStepsStopsWhenConsumerBreaks(t *testing.T) {
	count := 0
	for _, err := range Steps(policy.DefaultParams(), DefaultOptions()) {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		count++
		if count == 3 {
			break
		}
	}
	if count != 3 {
		t.Fatalf("expected 3 states, got %d", count)
	}
}

func TestSolveErrors(t *testing.T) {
	tests := []struct {
		name        string
		params      func() policy.Params
		opts        Options
		wantErr     error
		traceLength int
	}{
		{
			name: "fill rate outside (0,1) at EOQ",
			params: func() policy.Params {
				return testutil.ParamsWith(func(p *policy.Params) { p.PenaltyCost = 0.1 })
			},
			wantErr:     normal.ErrDomain,
			traceLength: 0,
		},
		{
			name: "zero lead time rejected",
			params: func() policy.Params {
				return testutil.ParamsWith(func(p *policy.Params) { p.LeadTime = 0 })
			},
			wantErr:     policy.ErrInvalidParams,
			traceLength: 0,
		},
		{
			name:        "iteration cap reached",
			params:      policy.DefaultParams,
			opts:        Options{Tolerance: 1e-9, MaxIterations: 3},
			wantErr:     ErrNonConvergence,
			traceLength: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Solve(zap.NewNop(), tt.params(), tt.opts)
			if err == nil {
				t.Fatal("expected error but got none")
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if result.Converged {
				t.Fatal("failed run must not be marked converged")
			}
			if len(result.Trace) != tt.traceLength {
				t.Fatalf("expected partial trace of %d states, got %d", tt.traceLength, len(result.Trace))
			}
		})
	}
}

func TestDomainErrorMidIteration(t *testing.T) {
	// EOQ gives a valid fill rate, but Q1 pushes it below zero.
	p := policy.DefaultParams()
	p.PenaltyCost = 1
	p.SetupCost = 1
	p.StandardDeviation = 2000

	if p.FillRate(p.EconomicOrderQuantity()) <= 0 {
		t.Fatalf("fixture must start inside the domain, F(EOQ)=%v", p.FillRate(p.EconomicOrderQuantity()))
	}

	result, err := Solve(zap.NewNop(), p, DefaultOptions())
	if !errors.Is(err, normal.ErrDomain) {
		t.Fatalf("expected domain error, got %v", err)
	}
	if len(result.Trace) == 0 {
		t.Fatal("expected step 0 in the partial trace")
	}
}

func TestLargePenaltyApproachesEOQ(t *testing.T) {
	opts := Options{Tolerance: 1e-6}
	eoq := policy.DefaultParams().EconomicOrderQuantity()

	previous := math.Inf(1)
	for _, penalty := range []float64{1e3, 1e4, 1e5} {
		p := policy.DefaultParams()
		p.PenaltyCost = penalty
		result, err := Solve(zap.NewNop(), p, opts)
		if err != nil {
			t.Fatalf("penalty %g: Solve() error = %v", penalty, err)
		}
		q := result.Final().OrderQuantity
		if q <= eoq {
			t.Fatalf("penalty %g: Q=%v must stay above EOQ %v", penalty, q, eoq)
		}
		if q >= previous {
			t.Fatalf("penalty %g: Q=%v did not move toward EOQ (previous %v)", penalty, q, previous)
		}
		previous = q
	}
}

func TestSummarize(t *testing.T) {
	summary, err := Summarize(policy.DefaultParams())
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}

	checks := []struct {
		name     string
		got      float64
		expected float64
		tol      float64
	}{
		{"annual demand", summary.AnnualDemand, 1500, 1e-12},
		{"holding cost", summary.HoldingCost, 5, 1e-12},
		{"EOQ", summary.EconomicOrderQuantity, 244.94897427831782, 1e-9},
		{"fill rate", summary.FillRate, 1 - 244.94897427831782*5/30000, 1e-12},
		{"z0", summary.SafetyFactor, 1.7411935465, 1e-7},
		{"R0", summary.ReorderPoint, 674.11935465, 1e-5},
		{"total cost", summary.TotalCost, 1224.7448713915892, 1e-9},
		{"Q1", summary.NextOrderQuantity, 282.5525144973, 1e-6},
		{"R1", summary.NextReorderPoint, 667.3727474951, 1e-5},
	}
	for _, c := range checks {
		if !testutil.Close(c.got, c.expected, c.tol) {
			t.Errorf("%s = %.10f, expected %.10f", c.name, c.got, c.expected)
		}
	}

	if _, err := Summarize(policy.Params{}); !errors.Is(err, policy.ErrInvalidParams) {
		t.Fatalf("expected invalid params error, got %v", err)
	}
}

func TestPhaseText(t *testing.T) {
	data, err := json.Marshal(State{Phase: PhaseConverged})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded State
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Phase != PhaseConverged {
		t.Fatalf("expected converged, got %s", decoded.Phase)
	}

	var p Phase
	if err := p.UnmarshalText([]byte("bogus")); err == nil {
		t.Fatal("expected error for unknown phase")
	}
	if Phase(7).String() != "phase(7)" {
		t.Fatalf("unexpected string %q", Phase(7).String())
	}
}

func TestSolveBatch(t *testing.T) {
	bad := testutil.ParamsWith(func(p *policy.Params) { p.PenaltyCost = 0.1 })
	highPenalty := testutil.ParamsWith(func(p *policy.Params) { p.PenaltyCost = 1000 })

	jobs := []Job{
		{Name: "default", Params: policy.DefaultParams()},
		{Name: "domain", Params: bad},
		{Name: "invalid", Params: policy.Params{}},
		{Name: "high penalty", Params: highPenalty, Options: Options{Tolerance: 1e-6}},
	}

	results, err := SolveBatch(context.Background(), zap.NewNop(), jobs, 2)
	if err != nil {
		t.Fatalf("SolveBatch() error = %v", err)
	}
	if len(results) != len(jobs) {
		t.Fatalf("expected %d results, got %d", len(jobs), len(results))
	}
	for i, r := range results {
		if r.Name != jobs[i].Name {
			t.Fatalf("result %d out of order: %s", i, r.Name)
		}
	}

	if results[0].Err != nil || !results[0].Result.Converged {
		t.Fatalf("default job failed: %v", results[0].Err)
	}
	if !errors.Is(results[1].Err, normal.ErrDomain) || results[1].Result != nil {
		t.Fatalf("expected domain error for job 1, got %v", results[1].Err)
	}
	if !errors.Is(results[2].Err, policy.ErrInvalidParams) {
		t.Fatalf("expected invalid params for job 2, got %v", results[2].Err)
	}
	if results[3].Err != nil {
		t.Fatalf("high penalty job failed: %v", results[3].Err)
	}

	single, err := Solve(zap.NewNop(), policy.DefaultParams(), Options{})
	if err != nil {
		t.Fatalf("Solve() error = %v", err)
	}
	if !reflect.DeepEqual(single.Trace, results[0].Result.Trace) {
		t.Fatal("batch result differs from a standalone run")
	}
}

func TestSolveBatchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	jobs := []Job{{Name: "a", Params: policy.DefaultParams()}, {Name: "b", Params: policy.DefaultParams()}}
	results, err := SolveBatch(ctx, nil, jobs, 1)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	for _, r := range results {
		if !errors.Is(r.Err, context.Canceled) {
			t.Fatalf("job %s: expected context.Canceled, got %v", r.Name, r.Err)
		}
	}
}
