package coreir

import (
	"context"

	"golang.org/x/sync/errgroup"

	"surge/internal/source"
)

// BatchJob is one source tree to translate as part of a batch: a project
// build compiling many top-level definitions concurrently, for instance.
type BatchJob struct {
	Name string
	Expr *SourceExpr
}

// BatchResult pairs a job's name back up with its translated tree, since
// results arrive in completion order relative to each other internally but
// are written back into the caller's original slot.
type BatchResult struct {
	Name string
	Core *CoreExpr
}

// TranslateBatch runs Translate over every job concurrently, sharing strings
// (safe: source.Interner guards its state with a mutex) but giving each job
// its own Translator and PrimitiveEnv, since neither is safe for concurrent
// use. It stops at the first error and returns it, cancelling the remaining
// jobs' context.
func TranslateBatch(ctx context.Context, strings *source.Interner, newEnv func() PrimitiveEnv, jobs []BatchJob) ([]BatchResult, error) {
	results := make([]BatchResult, len(jobs))
	g, ctx := errgroup.WithContext(ctx)
	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			tr := NewTranslator(newEnv(), strings)
			core := tr.Translate(job.Expr)
			results[i] = BatchResult{Name: job.Name, Core: core}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
