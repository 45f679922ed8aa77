package ratelimit

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"fuelprice/internal/provider"
)

type countingFetcher struct{ n atomic.Int32 }

func (c *countingFetcher) Name() string { return "counting" }
func (c *countingFetcher) Fetch(context.Context, provider.Profile, provider.Request) (string, error) {
	c.n.Add(1)
	return "ok", nil
}

func TestPaced_SpacesCalls(t *testing.T) {
	f := &countingFetcher{}
	p := NewPaced(f, 50*time.Millisecond, 1)

	start := time.Now()
	for i := 0; i < 3; i++ {
		if _, err := p.Fetch(t.Context(), provider.Primary, provider.Request{}); err != nil {
			t.Fatalf("fetch %d: %v", i, err)
		}
	}
	// first call is immediate, the next two wait one interval each
	if el := time.Since(start); el < 90*time.Millisecond {
		t.Fatalf("calls not paced: %v", el)
	}
	if f.n.Load() != 3 {
		t.Fatalf("want 3 calls, got %d", f.n.Load())
	}
	if p.Name() != "counting" {
		t.Fatalf("name not delegated: %s", p.Name())
	}
}

func TestPaced_CanceledContextSkipsFetch(t *testing.T) {
	f := &countingFetcher{}
	p := NewPaced(f, time.Hour, 1)

	// drain the initial token
	if _, err := p.Fetch(t.Context(), provider.Primary, provider.Request{}); err != nil {
		t.Fatalf("first fetch: %v", err)
	}

	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()
	_, err := p.Fetch(ctx, provider.Alternate, provider.Request{})
	if !errors.Is(err, provider.ErrUpstreamUnavailable) {
		t.Fatalf("want upstream error, got %v", err)
	}
	if f.n.Load() != 1 {
		t.Fatalf("wrapped fetcher called after cancel: %d", f.n.Load())
	}
}

func TestPaced_ZeroIntervalDisablesPacing(t *testing.T) {
	f := &countingFetcher{}
	p := NewPaced(f, 0, 0)
	start := time.Now()
	for i := 0; i < 20; i++ {
		_, _ = p.Fetch(t.Context(), provider.Primary, provider.Request{})
	}
	if el := time.Since(start); el > 50*time.Millisecond {
		t.Fatalf("unexpected delay: %v", el)
	}
}
