package cache

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"fuelprice/internal/provider"
)

// DefaultCallTimeout bounds a shared upstream call.
const DefaultCallTimeout = 30 * time.Second

// Provider caches successful bodies per request for a TTL. Concurrent misses
// for the same request share one upstream call. Failures are never cached.
type Provider struct {
	P provider.Fetcher
	// CallTimeout bounds the shared call, which outlives any single caller.
	CallTimeout time.Duration

	lru   *expirable.LRU[string, string]
	group singleflight.Group
}

// New wraps p. A non-positive ttl or maxItems disables caching but keeps
// call coalescing.
func New(p provider.Fetcher, ttl time.Duration, maxItems int) *Provider {
	c := &Provider{P: p, CallTimeout: DefaultCallTimeout}
	if ttl > 0 && maxItems > 0 {
		c.lru = expirable.NewLRU[string, string](maxItems, nil, ttl)
	}
	return c
}

func (c *Provider) Name() string { return c.P.Name() }

// Fetch returns a cached body when fresh, otherwise fetches and stores it.
// The upstream call is detached from ctx so one caller giving up does not
// fail the others waiting on it; each caller still returns on its own ctx.
func (c *Provider) Fetch(ctx context.Context, profile provider.Profile, req provider.Request) (string, error) {
	key := cacheKey(profile, req)
	if c.lru != nil {
		if body, ok := c.lru.Get(key); ok {
			return body, nil
		}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ch := c.group.DoChan(key, func() (any, error) {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.callTimeout())
		defer cancel()
		body, err := c.P.Fetch(callCtx, profile, req)
		if err != nil {
			return "", err
		}
		if c.lru != nil {
			c.lru.Add(key, body)
		}
		return body, nil
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return "", r.Err
		}
		return r.Val.(string), nil
	}
}

func (c *Provider) callTimeout() time.Duration {
	if c.CallTimeout <= 0 {
		return DefaultCallTimeout
	}
	return c.CallTimeout
}

// Len reports the number of cached bodies.
func (c *Provider) Len() int {
	if c.lru == nil {
		return 0
	}
	return c.lru.Len()
}

func cacheKey(profile provider.Profile, req provider.Request) string {
	return strings.Join([]string{
		profile.String(),
		req.FuelCode,
		req.Scope,
		strings.ToLower(req.City),
		strings.Join(req.Networks, ","),
	}, "|")
}
