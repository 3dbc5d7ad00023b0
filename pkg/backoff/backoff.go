// Package backoff produces the bounded, jittered delay sequences used to
// space out retries of failing operations.
//
// A Sequence is a cursor over a capped exponential series with equal jitter:
// for attempt index i the raw value is step*2^i, capped at a ceiling, and the
// produced delay is uniformly distributed in [raw/2, raw). The cursor yields
// a fixed number of values and is meant to live for exactly one retrying
// operation; it is not safe for concurrent use.
package backoff

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// Sequence is a cursor over an equal-jitter capped exponential delay series.
type Sequence struct {
	step     time.Duration
	maxDelay time.Duration
	limit    int
	taken    int
}

// NewSequence creates a sequence that yields at most limit delays, starting
// from step and doubling up to maxDelay.
func NewSequence(step, maxDelay time.Duration, limit int) *Sequence {
	return &Sequence{
		step:     step,
		maxDelay: maxDelay,
		limit:    limit,
	}
}

// Next returns the delay for the current attempt index and advances the
// cursor. The second return value is false once the sequence is exhausted.
func (s *Sequence) Next() (time.Duration, bool) {
	if s.taken >= s.limit {
		return 0, false
	}
	d := Delay(s.step, s.maxDelay, s.taken)
	s.taken++
	return d, true
}

// Remaining reports how many delays the sequence can still produce.
func (s *Sequence) Remaining() int {
	return s.limit - s.taken
}

// Delay computes the equal-jitter delay for a single attempt index.
func Delay(step, maxDelay time.Duration, attempt int) time.Duration {
	// Exponential growth with a hard ceiling
	raw := float64(step) * math.Pow(2, float64(attempt))
	if raw > float64(maxDelay) {
		raw = float64(maxDelay)
	}

	// Equal jitter: keep half, randomize the other half
	half := raw / 2
	return time.Duration(half + rand.Float64()*half)
}

// Sleep blocks for d or until ctx is done, whichever comes first. Returns
// the context error when the wait was interrupted. Cancelling an already
// finished wait is a no-op.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	select {
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
