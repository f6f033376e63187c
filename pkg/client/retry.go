package client

import (
	"context"
	"math/rand"
	"time"
)

// DefaultRetryDelay is the wait between attempts when none is configured.
const DefaultRetryDelay = 2 * time.Second

// Backoff holds the configuration for the wait between attempts.
// The default is a fixed delay with no attempt ceiling.
type Backoff struct {
	// Delay is the wait after the first failed attempt.
	Delay time.Duration

	// Multiplier grows the delay after each further attempt. Values below 1 mean fixed.
	Multiplier float64

	// MaxDelay caps the grown delay. Zero means uncapped.
	MaxDelay time.Duration

	// Jitter spreads each delay by ±Jitter (0.2 = ±20%). Zero disables jitter.
	Jitter float64

	// MaxAttempts is the attempt ceiling including the first try. Zero means
	// retry until success.
	MaxAttempts int
}

// DefaultBackoff returns the default backoff configuration.
func DefaultBackoff() Backoff {
	return Backoff{
		Delay:      DefaultRetryDelay,
		Multiplier: 1,
	}
}

// normalize replaces malformed values with their defaults.
func (b Backoff) normalize() Backoff {
	if b.Delay <= 0 {
		b.Delay = DefaultRetryDelay
	}
	if b.Multiplier < 1 {
		b.Multiplier = 1
	}
	if b.MaxDelay < 0 {
		b.MaxDelay = 0
	}
	if b.Jitter < 0 || b.Jitter >= 1 {
		b.Jitter = 0
	}
	if b.MaxAttempts < 0 {
		b.MaxAttempts = 0
	}
	return b
}

// Next returns the wait after the given failed attempt (1-based).
func (b Backoff) Next(attempt int) time.Duration {
	d := float64(b.Delay)
	for i := 1; i < attempt && b.Multiplier > 1; i++ {
		d *= b.Multiplier
		if b.MaxDelay > 0 && d >= float64(b.MaxDelay) {
			d = float64(b.MaxDelay)
			break
		}
	}
	if b.MaxDelay > 0 && d > float64(b.MaxDelay) {
		d = float64(b.MaxDelay)
	}
	if b.Jitter > 0 {
		d *= 1 - b.Jitter + rand.Float64()*2*b.Jitter
	}
	return time.Duration(d)
}

// Exhausted reports whether no attempt may follow the given one.
func (b Backoff) Exhausted(attempt int) bool {
	return b.MaxAttempts > 0 && attempt >= b.MaxAttempts
}

// sleep waits for d or returns early when ctx ends.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
