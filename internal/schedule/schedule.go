package schedule

import (
	"context"
	"time"
)

// RunAt executes fn on its own goroutine once runAt arrives. A run time in
// the past executes immediately. If ctx is canceled before runAt, fn never
// runs.
func RunAt(ctx context.Context, runAt time.Time, fn func(ctx context.Context)) {
	go func() {
		if delay := time.Until(runAt); delay > 0 {
			timer := time.NewTimer(delay)
			defer timer.Stop()
			select {
			case <-timer.C:
			case <-ctx.Done():
				return
			}
		}
		if ctx.Err() != nil {
			return
		}
		fn(ctx)
	}()
}
