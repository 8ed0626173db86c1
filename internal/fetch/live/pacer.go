package live

import (
	"context"
	"time"
)

const (
	// maxBatchDelay caps backoff growth between batches.
	maxBatchDelay = 120 * time.Second
	// relaxStreak is how many consecutive good batches it takes before
	// the delay starts easing back toward the baseline.
	relaxStreak = 5
	// relaxFactor shrinks the delay per good batch once the streak is met.
	relaxFactor = 0.8
)

// Pacer holds the mutable inter-batch delay. It is mutated only by the
// sequential batch loop, never concurrently, and is kept separate so the
// adaptation rules can be tested with synthetic success/failure runs.
type Pacer struct {
	baseline time.Duration
	current  time.Duration
	streak   int
}

// NewPacer creates a pacer at its baseline delay.
func NewPacer(baseline time.Duration) *Pacer {
	return &Pacer{baseline: baseline, current: baseline}
}

// Delay returns the current inter-batch delay.
func (p *Pacer) Delay() time.Duration {
	return p.current
}

// Success records a good batch. After enough consecutive successes the
// delay relaxes multiplicatively toward, but never below, the baseline.
// The streak keeps growing so each further success relaxes another step.
func (p *Pacer) Success() {
	p.streak++
	if p.streak >= relaxStreak && p.current > p.baseline {
		p.current = time.Duration(float64(p.current) * relaxFactor)
		if p.current < p.baseline {
			p.current = p.baseline
		}
	}
}

// Failure records a failed batch: the delay doubles up to the cap and
// the success streak resets.
func (p *Pacer) Failure() {
	p.current *= 2
	if p.current > maxBatchDelay {
		p.current = maxBatchDelay
	}
	p.streak = 0
}

// Wait sleeps for the current delay or until the context is done.
func (p *Pacer) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(p.current):
		return nil
	}
}
