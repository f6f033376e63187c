package client

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDefaultBackoff(t *testing.T) {
	b := DefaultBackoff()

	if b.Delay != 2*time.Second {
		t.Errorf("Delay = %v, want 2s", b.Delay)
	}
	if b.MaxAttempts != 0 {
		t.Errorf("MaxAttempts = %d, want 0 (unbounded)", b.MaxAttempts)
	}
	for attempt := 1; attempt <= 5; attempt++ {
		if got := b.Next(attempt); got != 2*time.Second {
			t.Errorf("Next(%d) = %v, want fixed 2s", attempt, got)
		}
	}
	if b.Exhausted(1000) {
		t.Error("default backoff must never be exhausted")
	}
}

func TestBackoff_Next(t *testing.T) {
	tests := []struct {
		name    string
		backoff Backoff
		attempt int
		want    time.Duration
	}{
		{
			name:    "first attempt uses delay",
			backoff: Backoff{Delay: time.Second, Multiplier: 2},
			attempt: 1,
			want:    time.Second,
		},
		{
			name:    "third attempt doubles twice",
			backoff: Backoff{Delay: time.Second, Multiplier: 2},
			attempt: 3,
			want:    4 * time.Second,
		},
		{
			name:    "capped at max delay",
			backoff: Backoff{Delay: time.Second, Multiplier: 2, MaxDelay: 3 * time.Second},
			attempt: 10,
			want:    3 * time.Second,
		},
		{
			name:    "multiplier below one is fixed",
			backoff: Backoff{Delay: time.Second, Multiplier: 0.5},
			attempt: 4,
			want:    time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.backoff.Next(tt.attempt); got != tt.want {
				t.Errorf("Next(%d) = %v, want %v", tt.attempt, got, tt.want)
			}
		})
	}
}

func TestBackoff_Jitter(t *testing.T) {
	b := Backoff{Delay: time.Second, Multiplier: 1, Jitter: 0.2}

	for i := 0; i < 50; i++ {
		got := b.Next(1)
		if got < 800*time.Millisecond || got > 1200*time.Millisecond {
			t.Fatalf("Next = %v, want within ±20%% of 1s", got)
		}
	}
}

func TestBackoff_Normalize(t *testing.T) {
	b := Backoff{Delay: -1, Multiplier: 0, MaxDelay: -1, Jitter: 3, MaxAttempts: -2}.normalize()

	if b.Delay != DefaultRetryDelay {
		t.Errorf("Delay = %v, want default", b.Delay)
	}
	if b.Multiplier != 1 {
		t.Errorf("Multiplier = %v, want 1", b.Multiplier)
	}
	if b.MaxDelay != 0 || b.Jitter != 0 || b.MaxAttempts != 0 {
		t.Errorf("normalize left malformed values: %+v", b)
	}
}

func TestBackoff_Exhausted(t *testing.T) {
	b := Backoff{MaxAttempts: 3}
	if b.Exhausted(2) {
		t.Error("Exhausted(2) with ceiling 3")
	}
	if !b.Exhausted(3) {
		t.Error("not Exhausted(3) with ceiling 3")
	}
}

func TestSleep_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := sleep(ctx, time.Minute)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("sleep = %v, want context.Canceled", err)
	}
	if time.Since(start) > 100*time.Millisecond {
		t.Error("sleep did not return promptly on cancellation")
	}
}

func TestSleep_Elapses(t *testing.T) {
	start := time.Now()
	if err := sleep(context.Background(), 20*time.Millisecond); err != nil {
		t.Fatalf("sleep failed: %v", err)
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Error("sleep returned early")
	}
}
