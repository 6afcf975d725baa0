package client

import (
	"time"

	"github.com/cenkalti/backoff/v5"
)

const (
	DefaultReconnectDelay    = 5 * time.Second
	DefaultMaxReconnectDelay = time.Minute
	DefaultReconnectJitter   = 0.2
	DefaultMaxAttempts       = 10
)

// ReconnectPolicy decides how long to wait before each reconnect attempt and
// when to give up.
type ReconnectPolicy struct {
	BackOff backoff.BackOff

	// MaxAttempts is the number of consecutive failed attempts after which the
	// manager stops retrying. Zero retries forever.
	MaxAttempts int
}

// FixedDelay retries forever after a constant delay.
func FixedDelay(d time.Duration) *ReconnectPolicy {
	return &ReconnectPolicy{BackOff: backoff.NewConstantBackOff(d)}
}

// ExponentialBackoff doubles the delay from initial up to max, randomized by
// jitter, and gives up after attempts failures.
func ExponentialBackoff(initial, max time.Duration, jitter float64, attempts int) *ReconnectPolicy {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initial
	b.MaxInterval = max
	b.RandomizationFactor = jitter
	b.Multiplier = 2
	b.Reset()
	return &ReconnectPolicy{BackOff: b, MaxAttempts: attempts}
}

// DefaultPolicy is the bounded exponential policy used when none is given.
func DefaultPolicy() *ReconnectPolicy {
	return ExponentialBackoff(DefaultReconnectDelay, DefaultMaxReconnectDelay, DefaultReconnectJitter, DefaultMaxAttempts)
}

func (p *ReconnectPolicy) exhausted(attempt int) bool {
	return p.MaxAttempts > 0 && attempt > p.MaxAttempts
}
