// Package worker provides a generic bounded worker pool for concurrent task processing.
package worker

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Job represents a unit of work with an index for ordering.
type Job[T any] struct {
	Index int
	Data  T
}

// Result represents the outcome of processing a Job.
type Result[T any] struct {
	Index int
	Value T
	Err   error
}

// PanicError is the result error of a job whose ProcessFunc panicked.
type PanicError struct {
	Index int
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("job %d panicked: %v", e.Index, e.Value)
}

// ProcessFunc processes a job and returns a result.
type ProcessFunc[I, O any] func(ctx context.Context, job Job[I]) (O, error)

// ProgressFunc is called after each job completes successfully.
type ProgressFunc func(completed, total int)

// PoolOptions configures pool behavior.
type PoolOptions struct {
	Workers int
	// FailFast cancels the remaining jobs after the first error.
	FailFast bool
}

// Pool runs jobs with at most Workers in flight.
type Pool[I, O any] struct {
	workers    int
	failFast   bool
	process    ProcessFunc[I, O]
	onProgress ProgressFunc
}

// NewPool creates a new worker pool.
func NewPool[I, O any](opts PoolOptions, process ProcessFunc[I, O]) *Pool[I, O] {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &Pool[I, O]{
		workers:  opts.Workers,
		failFast: opts.FailFast,
		process:  process,
	}
}

// SetProgressCallback sets a callback to be called after each job completes.
func (p *Pool[I, O]) SetProgressCallback(fn ProgressFunc) {
	p.onProgress = fn
}

// Run processes all jobs and returns their results ordered by Index.
// With one worker, jobs start strictly in slice order.
// In fail-fast mode jobs not yet started when an error occurs are never run
// and their results carry the context error.
func (p *Pool[I, O]) Run(ctx context.Context, jobs []Job[I]) []Result[O] {
	total := len(jobs)
	results := make([]Result[O], total)
	if total == 0 {
		return results
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g := new(errgroup.Group)
	g.SetLimit(p.workers)

	var mu sync.Mutex
	completed := 0

	for i, job := range jobs {
		results[i].Index = job.Index
		if err := runCtx.Err(); err != nil {
			results[i].Err = err
			continue
		}
		g.Go(func() error {
			if err := runCtx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			value, err := call(runCtx, p.process, job)
			results[i].Value = value
			results[i].Err = err
			if err != nil {
				if p.failFast {
					cancel()
				}
				return nil
			}
			if p.onProgress != nil {
				mu.Lock()
				completed++
				n := completed
				p.onProgress(n, total)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Process is a helper that runs items through a fail-fast pool and returns
// ordered outputs. The first error encountered (in completion order) is returned.
func Process[I, O any](ctx context.Context, items []I, workers int, process ProcessFunc[I, O], onProgress ProgressFunc) ([]O, error) {
	if len(items) == 0 {
		return nil, nil
	}

	// Adjust workers if we have fewer items
	if workers > len(items) {
		workers = len(items)
	}

	jobs := make([]Job[I], len(items))
	for i, item := range items {
		jobs[i] = Job[I]{Index: i, Data: item}
	}

	var (
		firstMu  sync.Mutex
		firstErr error
	)
	wrapped := func(ctx context.Context, job Job[I]) (O, error) {
		v, err := call(ctx, process, job)
		if err != nil {
			firstMu.Lock()
			if firstErr == nil {
				firstErr = err
			}
			firstMu.Unlock()
		}
		return v, err
	}

	pool := NewPool[I, O](PoolOptions{Workers: workers, FailFast: true}, wrapped)
	pool.SetProgressCallback(onProgress)
	results := pool.Run(ctx, jobs)

	if firstErr != nil {
		return nil, firstErr
	}
	output := make([]O, len(results))
	for i, result := range results {
		if result.Err != nil {
			return nil, result.Err
		}
		output[i] = result.Value
	}
	return output, nil
}

// call runs process and converts a panic into a *PanicError.
func call[I, O any](ctx context.Context, process ProcessFunc[I, O], job Job[I]) (value O, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero O
			value = zero
			err = &PanicError{Index: job.Index, Value: r, Stack: debug.Stack()}
		}
	}()
	return process(ctx, job)
}
