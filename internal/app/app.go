// Package app wires configuration into the running object graph shared by
// the server and the CLI.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"fuelprice/internal/acquire"
	"fuelprice/internal/config"
	"fuelprice/internal/extract"
	"fuelprice/internal/httpx"
	"fuelprice/internal/metrics"
	"fuelprice/internal/provider"
	"fuelprice/internal/provider/cache"
	"fuelprice/internal/provider/peco"
	"fuelprice/internal/provider/ratelimit"
	"fuelprice/internal/resolve"
	"fuelprice/internal/route"
	"fuelprice/internal/store"
)

// App holds the long-lived components of one process.
type App struct {
	Config       config.Config
	Log          logrus.FieldLogger
	Location     *time.Location
	Metrics      *metrics.Metrics
	Store        *store.Store
	Orchestrator *acquire.Orchestrator
	Resolver     *resolve.Resolver
	Live         *resolve.Live
	Planner      *route.Planner
}

// Build opens the store and assembles every component. Close releases the
// store.
func Build(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (*App, error) {
	loc, err := cfg.Store.Location()
	if err != nil {
		return nil, err
	}
	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DSN,
		store.WithLocation(loc),
		store.WithMinCoverage(cfg.Acquisition.MinCoverage),
	)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}

	m := metrics.New()
	hc := httpx.New(time.Duration(cfg.Upstream.TimeoutSec) * time.Second)
	upstream := peco.New(
		peco.WithBaseURL(cfg.Upstream.BaseURL),
		peco.WithHTTPClient(hc),
		peco.WithNetworks(cfg.Upstream.Networks...),
		peco.WithSessionNetworks(cfg.Upstream.SessionNetworks...),
		peco.WithLogger(log.WithField("component", "peco")),
	)
	// one limiter for sweeps and live lookups keeps the upstream spacing global
	var paced provider.Fetcher = ratelimit.NewPaced(upstream, cfg.Acquisition.Pacing(), 1)
	chain := extract.NewChain(cfg.Validation.Validator())

	orch := acquire.New(paced, st,
		acquire.WithChain(chain),
		acquire.WithPolicy(cfg.Acquisition.RetryPolicy()),
		acquire.WithLogger(log.WithField("component", "acquire")),
		acquire.WithMetrics(m),
	)

	cached := cache.New(paced, time.Duration(cfg.Resolver.LiveCacheTTLSec)*time.Second, cfg.Resolver.LiveCacheMaxItems)
	// the shared call may queue behind one pacing interval before it goes out
	cached.CallTimeout = time.Duration(cfg.Upstream.TimeoutSec)*time.Second + cfg.Acquisition.Pacing()
	live := resolve.NewLive(cached, chain)
	res := resolve.New(st, live,
		resolve.WithThreshold(cfg.Resolver.ThresholdKM),
		resolve.WithLogger(log.WithField("component", "resolve")),
	)

	routeHTTP := &http.Client{Transport: hc.HTTP.Transport, Timeout: time.Duration(cfg.Route.TimeoutSec) * time.Second}
	ors := route.NewClient(routeHTTP, cfg.Route.APIKey,
		route.WithBaseURL(cfg.Route.BaseURL),
		route.WithClientLogger(log.WithField("component", "route")),
	)

	return &App{
		Config:       cfg,
		Log:          log,
		Location:     loc,
		Metrics:      m,
		Store:        st,
		Orchestrator: orch,
		Resolver:     res,
		Live:         live,
		Planner:      route.NewPlanner(ors, res, log.WithField("component", "planner")),
	}, nil
}

func (a *App) Close() error { return a.Store.Close() }
