package sim

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/timedpid/internal/dynamo"
)

// Job builds and runs one independent simulation.
type Job func(ctx context.Context) (*dynamo.Result, error)

// Batch runs jobs concurrently with at most workers in flight. A failing job
// does not stop the others; its error is reported at the same index.
type Batch struct {
	workers int
}

func NewBatch(workers int) *Batch {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Batch{workers: workers}
}

func (b *Batch) Run(ctx context.Context, jobs []Job) ([]*dynamo.Result, []error) {
	results := make([]*dynamo.Result, len(jobs))
	errs := make([]error, len(jobs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)

	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			results[i], errs[i] = job(ctx)
			return nil
		})
	}
	_ = g.Wait()

	return results, errs
}
