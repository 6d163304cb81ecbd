package app

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"porosity/internal/metrics"
)

// StageResult reports what one pipeline stage did
type StageResult struct {
	Stage     string
	Processed int
	Skipped   int
	Failures  []ItemFailure
	Outputs   []string // files written, sorted
	Duration  time.Duration
}

// ItemFailure records an item a stage could not handle
type ItemFailure struct {
	Item string
	Err  error
}

// Err joins every item failure, or returns nil
func (r StageResult) Err() error {
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = fmt.Errorf("%s: %w", f.Item, f.Err)
	}
	return stderrors.Join(errs...)
}

// skipError marks an item that was deliberately left out
type skipError struct {
	reason error
}

func (e *skipError) Error() string { return "skipped: " + e.reason.Error() }

func (e *skipError) Unwrap() error { return e.reason }

// skip formats like fmt.Errorf, so %w keeps the cause inspectable.
func skip(format string, args ...interface{}) error {
	return &skipError{reason: fmt.Errorf(format, args...)}
}

// IsSkipped reports whether err marks an item that was left out on purpose
// rather than one that failed.
func IsSkipped(err error) bool {
	var skipped *skipError
	return stderrors.As(err, &skipped)
}

// itemResult is what a stage step produced for one item
type itemResult struct {
	outputs []string
	skipped int // sub-items left out while still processing the item
}

type stepFunc func(ctx context.Context, item string) (itemResult, error)

// fanOut runs step over items with at most p.workers in flight. Item errors are
// recorded in the result; only context cancellation aborts the stage.
func (p *Pipeline) fanOut(ctx context.Context, stage string, items []string, step stepFunc) (StageResult, error) {
	start := time.Now()
	result := StageResult{Stage: stage}
	var mu sync.Mutex

	sem := semaphore.NewWeighted(int64(p.workers))
	g, gctx := errgroup.WithContext(ctx)

	for _, item := range items {
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		item := item
		g.Go(func() error {
			defer sem.Release(1)
			if err := gctx.Err(); err != nil {
				return err
			}

			out, err := step(gctx, item)

			mu.Lock()
			defer mu.Unlock()
			result.Outputs = append(result.Outputs, out.outputs...)
			result.Skipped += out.skipped

			var skipped *skipError
			switch {
			case err == nil:
				result.Processed++
				p.metrics.IncrementSample(stage, metrics.OutcomeProcessed)
			case stderrors.As(err, &skipped):
				result.Skipped++
				p.metrics.IncrementSample(stage, metrics.OutcomeSkipped)
				p.logger.Warn("%s: %s %s", stage, item, skipped.reason)
			case stderrors.Is(err, context.Canceled), stderrors.Is(err, context.DeadlineExceeded):
				return err
			default:
				result.Failures = append(result.Failures, ItemFailure{Item: item, Err: err})
				p.metrics.IncrementSample(stage, metrics.OutcomeFailed)
				p.logger.Warn("%s: %s failed: %v", stage, item, err)
			}
			return nil
		})
	}

	waitErr := g.Wait()
	if waitErr == nil {
		waitErr = ctx.Err()
	}

	sort.Strings(result.Outputs)
	sort.Slice(result.Failures, func(i, j int) bool { return result.Failures[i].Item < result.Failures[j].Item })
	result.Duration = time.Since(start)
	p.metrics.ObserveStage(stage, result.Duration)
	p.logger.Info("%s: %d processed, %d skipped, %d failed in %s",
		stage, result.Processed, result.Skipped, len(result.Failures), result.Duration.Round(time.Millisecond))

	if waitErr != nil {
		return result, fmt.Errorf("%s: %w", stage, waitErr)
	}
	return result, nil
}
