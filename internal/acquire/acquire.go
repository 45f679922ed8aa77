// Package acquire sweeps every (city, fuel) pair against the upstream and
// commits the accepted prices as one batch.
//
// A sweep is strictly sequential. Each pair moves through
//
//	Pending -> Fetched -> Accepted
//	                   -> RetryPending -> RetryFetched -> Accepted | FailedFinal
//
// escalating the request profile on every retry. Overlapping Run calls are
// serialized by the orchestrator, and a run that finds the store already
// refreshed today returns without fetching anything.
package acquire

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"fuelprice/internal/aggregate"
	"fuelprice/internal/extract"
	"fuelprice/internal/fuel"
	"fuelprice/internal/logging"
	"fuelprice/internal/metrics"
	"fuelprice/internal/provider"
	"fuelprice/internal/retry"
	"fuelprice/internal/store"
)

// ErrParseFailure means the body held no valid price for the pair.
var ErrParseFailure = errors.New("no valid price in upstream body")

// State is a per-pair sweep state.
type State string

const (
	StatePending      State = "pending"
	StateFetched      State = "fetched"
	StateAccepted     State = "accepted"
	StateRetryPending State = "retry_pending"
	StateRetryFetched State = "retry_fetched"
	StateFailedFinal  State = "failed_final"
)

// Store is the part of the aggregate store a sweep needs.
type Store interface {
	IsFreshToday(ctx context.Context, now time.Time) (bool, error)
	Commit(ctx context.Context, b store.Batch, at time.Time) error
}

// Report summarizes one Run.
type Report struct {
	RunID    string        `json:"run_id"`
	Total    int           `json:"total"`
	Accepted int           `json:"accepted"`
	Failed   []fuel.Pair   `json:"failed"`
	Coverage float64       `json:"coverage"`
	Skipped  bool          `json:"skipped"`
	Duration time.Duration `json:"duration"`
}

// Orchestrator drives acquisition sweeps.
type Orchestrator struct {
	mu sync.Mutex

	fetcher provider.Fetcher
	store   Store
	chain   *extract.Chain
	cities  []string
	codes   []fuel.Code
	scope   string
	policy  retry.Policy
	log     logrus.FieldLogger
	metrics *metrics.Metrics
	now     func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithChain replaces the default extraction chain.
func WithChain(c *extract.Chain) Option {
	return func(o *Orchestrator) {
		if c != nil {
			o.chain = c
		}
	}
}

// WithCities restricts the sweep to cs.
func WithCities(cs ...string) Option {
	return func(o *Orchestrator) { o.cities = cs }
}

// WithCodes restricts the sweep to codes.
func WithCodes(codes ...fuel.Code) Option {
	return func(o *Orchestrator) { o.codes = codes }
}

// WithPolicy sets the retry policy.
func WithPolicy(p retry.Policy) Option {
	return func(o *Orchestrator) { o.policy = p }
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.log = l
		}
	}
}

// WithMetrics enables sweep metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// New sweeps every registry city and fuel code through f. Callers wanting
// spacing between requests pass a paced fetcher.
func New(f provider.Fetcher, s Store, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		fetcher: f,
		store:   s,
		chain:   extract.NewChain(fuel.NewValidator(nil)),
		cities:  fuel.Cities(),
		codes:   fuel.Codes(),
		scope:   fuel.ScopeCounty,
		policy:  retry.Default(),
		log:     logging.Discard(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run performs one sweep and commits it. A run whose coverage is too low
// returns the filled Report together with a *store.InsufficientCoverageError.
// Cancellation returns ctx.Err() and commits nothing.
func (o *Orchestrator) Run(ctx context.Context) (Report, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	start := o.now()
	run := NewRun(fuel.Pairs(o.cities, o.codes))
	rep := Report{RunID: run.ID, Total: run.Total}
	log := o.log.WithField("run_id", run.ID)

	fresh, err := o.store.IsFreshToday(ctx, start)
	if err != nil {
		return rep, fmt.Errorf("freshness check: %w", err)
	}
	if fresh {
		log.Info("prices already refreshed today, skipping sweep")
		rep.Skipped = true
		return rep, nil
	}

	log.WithField("pairs", run.Total).Info("sweep started")
	for _, p := range run.pairs {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		out := o.acquire(ctx, log, p)
		if err := ctx.Err(); err != nil {
			log.WithError(err).Warn("sweep aborted, nothing committed")
			return rep, err
		}
		if out.err != nil {
			run.Fail(p, out.err)
			o.metrics.ObservePair("failed")
			continue
		}
		run.Accept(p, out.quote)
		o.metrics.ObservePair("accepted")
	}

	b := run.Batch()
	rep.Accepted = len(b.Quotes)
	rep.Failed = b.Failed
	rep.Coverage = b.Coverage()
	rep.Duration = o.now().Sub(start)
	o.metrics.ObserveRun(rep.Duration, rep.Coverage)

	fields := logrus.Fields{"accepted": rep.Accepted, "total": rep.Total, "coverage": rep.Coverage}
	if err := o.store.Commit(ctx, b, o.now()); err != nil {
		log.WithFields(fields).WithError(err).Warn("sweep not committed")
		return rep, err
	}
	log.WithFields(fields).Info("sweep committed")
	return rep, nil
}

// outcome is the result of one pair's trip through the ladder.
type outcome struct {
	quote    fuel.Quote
	profile  provider.Profile
	strategy string
	body     string
	err      error
}

func (o *Orchestrator) acquire(ctx context.Context, log logrus.FieldLogger, p fuel.Pair) outcome {
	kind, err := p.Code.Kind()
	if err != nil {
		return outcome{err: err}
	}
	req := provider.Request{FuelCode: string(p.Code), Scope: o.scope, City: p.City}
	log = log.WithFields(logrus.Fields{"city": p.City, "fuel": p.Code})
	log.WithField("state", StatePending).Debug("pair pending")

	ladder := provider.Ladder()
	bo := o.policy.NewBackOff(ctx)
	var out outcome
	for attempt := 0; ; attempt++ {
		out.profile = ladder[min(attempt, len(ladder)-1)]
		alog := log.WithFields(logrus.Fields{"attempt": attempt + 1, "profile": out.profile})

		var res extract.Result
		res, out.body, out.err = o.attempt(ctx, kind, out.profile, req)
		state := StateFetched
		if attempt > 0 {
			state = StateRetryFetched
		}
		alog.WithField("state", state).Debug("pair fetched")

		if out.err == nil {
			out.strategy = res.Strategy
			out.quote = fuel.Quote{City: p.City, Fuel: kind, Price: res.Price, ObservedAt: o.now()}
			alog.WithFields(logrus.Fields{
				"state":    StateAccepted,
				"price":    res.Price,
				"strategy": res.Strategy,
				"source":   res.Source,
			}).Debug("pair accepted")
			if s := aggregate.Summarize(res.Offers); s.Count > 1 {
				alog.WithFields(logrus.Fields{
					"offers": s.Count, "min": s.Min, "max": s.Max,
					"petrom_avg": s.PetromAvg, "others_avg": s.OthersAvg,
				}).Debug("offer summary")
			}
			return out
		}
		if ctx.Err() != nil {
			return out
		}

		d := bo.NextBackOff()
		if d == backoff.Stop {
			alog.WithField("state", StateFailedFinal).WithError(out.err).Warn("pair failed")
			return out
		}
		alog.WithFields(logrus.Fields{"state": StateRetryPending, "delay": d}).WithError(out.err).Info("retrying pair")
		if err := retry.Sleep(ctx, d); err != nil {
			out.err = err
			return out
		}
	}
}

func (o *Orchestrator) attempt(ctx context.Context, kind fuel.Kind, profile provider.Profile, req provider.Request) (extract.Result, string, error) {
	body, err := o.fetcher.Fetch(ctx, profile, req)
	if err != nil {
		o.metrics.ObserveFetch(profile.String(), "error")
		return extract.Result{}, "", err
	}
	res, ok := o.chain.ExtractFor(kind, body)
	if !ok {
		o.metrics.ObserveFetch(profile.String(), "no_price")
		return extract.Result{}, body, fmt.Errorf("%s fetch: %w", profile, ErrParseFailure)
	}
	o.metrics.ObserveFetch(profile.String(), "ok")
	return res, body, nil
}
