package tap

import (
	"context"
	"fmt"
	"time"
)

// PollPolicy controls how a submission waits for its job to reach a
// terminal phase. The zero budget fields reproduce the service's
// historical client behavior: an unbounded loop with a fixed two-second
// interval. Callers who want a bound set MaxAttempts or Deadline; tests
// inject Sleep to avoid real waiting.
type PollPolicy struct {
	// Interval is the pause between consecutive status fetches.
	Interval time.Duration

	// Multiplier scales the interval after every attempt. Values at or
	// below 1 keep the interval fixed.
	Multiplier float64

	// MaxInterval caps a growing interval. Zero means no cap.
	MaxInterval time.Duration

	// MaxAttempts bounds the number of status fetches. Zero means
	// unbounded.
	MaxAttempts int

	// Deadline bounds the total wall-clock time spent polling,
	// measured from the first wait. Zero means unbounded.
	Deadline time.Duration

	// Sleep performs the inter-poll pause. Defaults to a
	// context-aware timer wait.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultPollPolicy returns the compatibility policy: poll every two
// seconds, forever.
func DefaultPollPolicy() PollPolicy {
	return PollPolicy{Interval: 2 * time.Second}
}

func (p PollPolicy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// wait blocks for the attempt's interval, enforcing the policy's
// budgets. attempt is one-based; start is when polling began.
func (p PollPolicy) wait(ctx context.Context, attempt int, start time.Time) error {
	if p.MaxAttempts > 0 && attempt > p.MaxAttempts {
		return fmt.Errorf("%w: %d attempts", ErrPollBudgetExceeded, p.MaxAttempts)
	}

	if p.Deadline > 0 && time.Since(start) >= p.Deadline {
		return fmt.Errorf("%w: %s deadline", ErrPollBudgetExceeded, p.Deadline)
	}

	return p.sleep(ctx, p.interval(attempt))
}

// interval computes the pause before the given one-based attempt.
func (p PollPolicy) interval(attempt int) time.Duration {
	d := p.Interval
	if d <= 0 {
		d = 2 * time.Second
	}

	if p.Multiplier > 1 {
		for i := 1; i < attempt; i++ {
			d = time.Duration(float64(d) * p.Multiplier)
			if p.MaxInterval > 0 && d >= p.MaxInterval {
				return p.MaxInterval
			}
		}
	}

	return d
}
