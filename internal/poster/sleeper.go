package poster

import (
	"context"
	"time"
)

// Sleeper is the suspension seam: every timed wait in the pipeline goes
// through it so tests can inject zero-duration waits.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// SleeperFunc adapts a function to the Sleeper interface.
type SleeperFunc func(ctx context.Context, d time.Duration) error

func (f SleeperFunc) Sleep(ctx context.Context, d time.Duration) error { return f(ctx, d) }

// TimerSleeper sleeps on a real timer, honoring cancellation.
type TimerSleeper struct{}

func (TimerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		if !t.Stop() {
			<-t.C
		}
		return ctx.Err()
	}
}

// NopSleeper returns immediately; used by tests.
func NopSleeper() Sleeper {
	return SleeperFunc(func(ctx context.Context, _ time.Duration) error { return ctx.Err() })
}
