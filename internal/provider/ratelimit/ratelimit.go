package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"fuelprice/internal/provider"
)

// Paced wraps a Fetcher and spaces calls at least Interval apart. Concurrent
// callers queue on the limiter; a canceled context returns early without
// calling the wrapped fetcher.
type Paced struct {
	F provider.Fetcher
	L *rate.Limiter
}

// NewPaced allows one call per interval with the given burst. A non-positive
// interval disables pacing.
func NewPaced(f provider.Fetcher, interval time.Duration, burst int) *Paced {
	if burst <= 0 {
		burst = 1
	}
	lim := rate.NewLimiter(rate.Inf, burst)
	if interval > 0 {
		lim = rate.NewLimiter(rate.Every(interval), burst)
	}
	return &Paced{F: f, L: lim}
}

func (p *Paced) Name() string { return p.F.Name() }

func (p *Paced) Fetch(ctx context.Context, profile provider.Profile, req provider.Request) (string, error) {
	if p.L != nil {
		if err := p.L.Wait(ctx); err != nil {
			return "", &provider.UpstreamError{Profile: profile, Err: err}
		}
	}
	return p.F.Fetch(ctx, profile, req)
}
