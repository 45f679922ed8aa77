// Package retry describes how failed upstream calls are retried.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy bounds retries and shapes the delay between attempts. MaxAttempts
// counts the first call.
type Policy struct {
	MaxAttempts     int           `json:"max_attempts" yaml:"max_attempts"`
	InitialInterval time.Duration `json:"initial_interval" yaml:"initial_interval"`
	MaxInterval     time.Duration `json:"max_interval" yaml:"max_interval"`
	Multiplier      float64       `json:"multiplier" yaml:"multiplier"`
	// Jitter is the randomization factor: each delay falls in
	// [d*(1-Jitter), d*(1+Jitter)].
	Jitter float64 `json:"jitter" yaml:"jitter"`
}

// Default is one primary attempt and two escalating retries starting three
// seconds apart.
func Default() Policy {
	return Policy{
		MaxAttempts:     3,
		InitialInterval: 3 * time.Second,
		MaxInterval:     10 * time.Second,
		Multiplier:      1.5,
		Jitter:          0.2,
	}
}

// Attempts returns MaxAttempts, at least 1.
func (p Policy) Attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// NewBackOff returns a BackOff that yields Attempts()-1 delays and then
// backoff.Stop. It also stops once ctx is done.
func (p Policy) NewBackOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.InitialInterval
	exp.MaxInterval = p.MaxInterval
	if exp.MaxInterval < exp.InitialInterval {
		exp.MaxInterval = exp.InitialInterval
	}
	exp.Multiplier = p.Multiplier
	if exp.Multiplier < 1 {
		exp.Multiplier = 1
	}
	exp.RandomizationFactor = p.Jitter
	exp.MaxElapsedTime = 0
	exp.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(p.Attempts()-1)), ctx)
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
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
