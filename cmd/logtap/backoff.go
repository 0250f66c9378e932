package main

import (
	"math/rand"
	"time"
)

const (
	restartInitialDelay = 500 * time.Millisecond
	restartMaxDelay     = 30 * time.Second
)

// backoff implements exponential backoff with jitter.
type backoff struct {
	initial time.Duration
	max     time.Duration
	current time.Duration
}

func newBackoff(initial, max time.Duration) *backoff {
	return &backoff{initial: initial, max: max, current: initial}
}

// next returns the delay to wait now and doubles the following one.
func (b *backoff) next() time.Duration {
	// ±20%
	jitter := float64(b.current) * 0.2 * (rand.Float64()*2 - 1)
	d := time.Duration(float64(b.current) + jitter)

	b.current *= 2
	if b.current > b.max {
		b.current = b.max
	}
	return d
}

func (b *backoff) reset() {
	b.current = b.initial
}
