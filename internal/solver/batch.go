package solver

import (
	"context"

	"github.com/iwvelando/reorder-policy/pkg/constants"
	"github.com/iwvelando/reorder-policy/pkg/policy"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Job is one independent configuration in a batch.
type Job struct {
	Name    string        `json:"name,omitempty"`
	Params  policy.Params `json:"policy"`
	Options Options       `json:"solver"`
}

// BatchResult pairs a job with its outcome. Exactly one of Result and Err is
// meaningful: Result is nil on failure.
type BatchResult struct {
	Name   string
	Result *Result
	Err    error
}

// SolveBatch solves every job with at most limit runs in flight. Results are
// returned in job order. A failing job does not affect the others; only a
// cancelled context stops the batch early, in which case the context error is
// returned and unstarted jobs carry it as their Err.
func SolveBatch(ctx context.Context, logger *zap.Logger, jobs []Job, limit int) ([]BatchResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if limit <= 0 {
		limit = constants.DefaultBatchConcurrency
	}

	results := make([]BatchResult, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, job := range jobs {
		results[i].Name = job.Name
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i].Err = err
				return err
			}
			result, err := Solve(logger.With(zap.Int("job", i), zap.String("name", job.Name)), job.Params, job.Options)
			if err != nil {
				logger.Warn("batch job failed",
					zap.String("op", "solver.SolveBatch"),
					zap.Int("job", i),
					zap.String("name", job.Name),
					zap.Error(err),
				)
				results[i].Err = err
				return nil
			}
			results[i].Result = result
			return nil
		})
	}

	err := g.Wait()
	return results, err
}
