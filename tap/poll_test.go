package tap

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPollPolicy_Interval(t *testing.T) {
	tests := []struct {
		name    string
		policy  PollPolicy
		attempt int
		want    time.Duration
	}{
		{"default interval", PollPolicy{}, 1, 2 * time.Second},
		{"fixed interval", PollPolicy{Interval: time.Second}, 5, time.Second},
		{"growing interval", PollPolicy{Interval: time.Second, Multiplier: 2}, 3, 4 * time.Second},
		{"capped interval", PollPolicy{Interval: time.Second, Multiplier: 2, MaxInterval: 3 * time.Second}, 5, 3 * time.Second},
		{"multiplier at or below one keeps fixed", PollPolicy{Interval: time.Second, Multiplier: 0.5}, 9, time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.policy.interval(tt.attempt); got != tt.want {
				t.Errorf("interval(%d) = %v, want %v", tt.attempt, got, tt.want)
			}
		})
	}
}

func TestPollPolicy_MaxAttempts(t *testing.T) {
	policy := PollPolicy{
		MaxAttempts: 2,
		Sleep:       func(ctx context.Context, d time.Duration) error { return nil },
	}

	start := time.Now()

	for attempt := 1; attempt <= 2; attempt++ {
		if err := policy.wait(t.Context(), attempt, start); err != nil {
			t.Fatalf("attempt %d: expected no error, got: %v", attempt, err)
		}
	}

	if err := policy.wait(t.Context(), 3, start); !errors.Is(err, ErrPollBudgetExceeded) {
		t.Errorf("expected ErrPollBudgetExceeded, got: %v", err)
	}
}

func TestPollPolicy_Deadline(t *testing.T) {
	policy := PollPolicy{
		Deadline: time.Millisecond,
		Sleep:    func(ctx context.Context, d time.Duration) error { return nil },
	}

	start := time.Now().Add(-time.Second)

	if err := policy.wait(t.Context(), 1, start); !errors.Is(err, ErrPollBudgetExceeded) {
		t.Errorf("expected ErrPollBudgetExceeded, got: %v", err)
	}
}

func TestPollPolicy_SleepHonorsContext(t *testing.T) {
	policy := PollPolicy{Interval: time.Hour}

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	if err := policy.wait(ctx, 1, time.Now()); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got: %v", err)
	}
}
