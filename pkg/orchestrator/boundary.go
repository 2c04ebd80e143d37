package orchestrator

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Outcome is one operation's result inside a ConcurrentBoundary batch.
type Outcome struct {
	Index int
	Err   error
}

// ConcurrentBoundary runs ops concurrently, collects every outcome (it
// never cancels in-flight work on a partial failure), and fails the
// aggregate only if the number of errors exceeds maxFailures.
//
// It leans on errgroup.Group for goroutine lifecycle and panic safety,
// the way workflowagent.NewParallel's sub-agent fan-out does, but each
// Go func always returns nil: a tolerate-up-to-N-failures boundary must
// not let errgroup's own first-error cancellation tear down the ctx
// every other op is still running against.
func ConcurrentBoundary(ctx context.Context, maxFailures int, ops []func(ctx context.Context) error) ([]Outcome, error) {
	if len(ops) == 0 {
		return nil, nil
	}

	outcomes := make([]Outcome, len(ops))
	var g errgroup.Group
	for i, op := range ops {
		i, op := i, op
		g.Go(func() (groupErr error) {
			var opErr error
			defer func() {
				if r := recover(); r != nil {
					opErr = fmt.Errorf("panic: %v", r)
				}
				outcomes[i] = Outcome{Index: i, Err: opErr}
			}()

			select {
			case <-ctx.Done():
				opErr = ctx.Err()
			default:
				opErr = op(ctx)
			}
			return nil
		})
	}
	_ = g.Wait()

	failures := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failures++
		}
	}

	if failures > maxFailures {
		return outcomes, fmt.Errorf("concurrent boundary: %d failures exceed max %d", failures, maxFailures)
	}
	return outcomes, nil
}
