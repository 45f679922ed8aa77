// Package resolve answers single fuel-price lookups for a destination.
//
// Short trips read the stored aggregate; long trips try a live upstream
// lookup first. Both branches fall back to the store-wide average for the
// fuel kind, and every answer carries a provenance tag naming its source.
package resolve

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"fuelprice/internal/fuel"
	"fuelprice/internal/logging"
)

// DefaultThresholdKM separates the store branch from the live branch.
const DefaultThresholdKM = 200.0

// Branch names reported with every Resolution.
const (
	BranchDatabase = "Database API"
	BranchLive     = "Live Scraping"
)

// ErrNoPrice is returned when no branch and no fallback produced a price.
var ErrNoPrice = errors.New("no fuel price available")

//go:generate mockgen -package=resolve_test -destination=mock_resolve_test.go -source=resolve.go

// Store is the read side of the aggregate.
type Store interface {
	Get(ctx context.Context, city string, kind fuel.Kind) (fuel.Quote, bool, error)
	Average(ctx context.Context, kind fuel.Kind) (float64, bool, error)
}

// LiveSource looks a price up directly at the upstream. ok is false when the
// upstream answered but carried no valid price.
type LiveSource interface {
	Lookup(ctx context.Context, city string, code fuel.Code) (price float64, ok bool, err error)
}

// Query selects what to resolve. City wins over Coordinates ([lon, lat])
// when it names a registry city. An empty Code means Benzina_Regular.
type Query struct {
	City        string
	Coordinates []float64
	Code        fuel.Code
	DistanceKM  float64
}

// Resolution is a resolved price and where it came from.
type Resolution struct {
	City        string    `json:"city"`
	Code        fuel.Code `json:"fuel"`
	Kind        fuel.Kind `json:"fuel_type"`
	Price       float64   `json:"price"`
	Provenance  string    `json:"price_source"`
	Branch      string    `json:"smart_routing"`
	ThresholdKM float64   `json:"threshold_km"`
	DistanceKM  float64   `json:"distance_km"`
}

// Resolver picks between the store and a live lookup by trip distance.
type Resolver struct {
	store     Store
	live      LiveSource
	threshold float64
	log       logrus.FieldLogger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithThreshold overrides DefaultThresholdKM.
func WithThreshold(km float64) Option {
	return func(r *Resolver) {
		if km > 0 {
			r.threshold = km
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.log = l
		}
	}
}

// New returns a Resolver. live may be nil, in which case long trips go
// straight to the average fallback.
func New(s Store, live LiveSource, opts ...Option) *Resolver {
	r := &Resolver{store: s, live: live, threshold: DefaultThresholdKM, log: logging.Discard()}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Threshold returns the configured branch threshold in kilometres.
func (r *Resolver) Threshold() float64 { return r.threshold }

// Resolve returns a price for q.
func (r *Resolver) Resolve(ctx context.Context, q Query) (Resolution, error) {
	city, ok := fuel.LookupCity(q.City)
	if !ok {
		city = fuel.Nearest(q.Coordinates).Name
	}
	code := q.Code
	if code == "" {
		code = fuel.BenzinaRegular
	}
	kind, err := code.Kind()
	if err != nil {
		return Resolution{}, err
	}

	res := Resolution{City: city, Code: code, Kind: kind, ThresholdKM: r.threshold, DistanceKM: q.DistanceKM}
	log := r.log.WithFields(logrus.Fields{"city": city, "fuel": code, "distance_km": q.DistanceKM})

	if q.DistanceKM < r.threshold {
		res.Branch = BranchDatabase
		quote, found, err := r.store.Get(ctx, city, kind)
		if err != nil {
			return Resolution{}, err
		}
		if found {
			res.Price = quote.Price
			res.Provenance = "DB-" + city
			log.WithField("price", res.Price).Debug("resolved from store")
			return res, nil
		}
		return r.average(ctx, log, res, "DB-Average")
	}

	res.Branch = BranchLive
	if r.live != nil {
		price, found, err := r.live.Lookup(ctx, city, code)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return Resolution{}, ctx.Err()
			}
			log.WithError(err).Warn("live lookup failed, using average")
		case found:
			res.Price = price
			res.Provenance = "Scraping-" + city
			log.WithField("price", res.Price).Debug("resolved live")
			return res, nil
		default:
			log.Info("live lookup found no price, using average")
		}
	}
	return r.average(ctx, log, res, "DB-Fallback")
}

func (r *Resolver) average(ctx context.Context, log logrus.FieldLogger, res Resolution, tag string) (Resolution, error) {
	avg, found, err := r.store.Average(ctx, res.Kind)
	if err != nil {
		return Resolution{}, err
	}
	if !found {
		return Resolution{}, fmt.Errorf("%w: %s in %s", ErrNoPrice, res.Kind, res.City)
	}
	res.Price = avg
	res.Provenance = tag
	log.WithFields(logrus.Fields{"price": avg, "source": tag}).Debug("resolved from average")
	return res, nil
}
