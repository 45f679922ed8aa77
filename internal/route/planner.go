package route

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"fuelprice/internal/fuel"
	"fuelprice/internal/logging"
	"fuelprice/internal/resolve"
)

// DefaultConsumption is litres per 100 km when the request names none.
const DefaultConsumption = 7.0

// ErrMissingEndpoint is returned when an end of the route has neither a
// location nor coordinates.
var ErrMissingEndpoint = errors.New("start and end need a location or coordinates")

// Router is the routing collaborator.
type Router interface {
	Geocode(ctx context.Context, text string) ([]float64, error)
	Directions(ctx context.Context, start, end []float64, preference string) (Route, error)
}

// PriceResolver resolves the fuel price at the destination.
type PriceResolver interface {
	Resolve(ctx context.Context, q resolve.Query) (resolve.Resolution, error)
}

// Request describes a trip. Coordinates are [lon, lat] and win over the
// matching location text.
type Request struct {
	StartLocation    string    `json:"startLocation"`
	EndLocation      string    `json:"endLocation"`
	StartCoordinates []float64 `json:"startCoordinates"`
	EndCoordinates   []float64 `json:"endCoordinates"`
	Preference       string    `json:"preference"`
	FuelType         fuel.Code `json:"fuelType"`
	FuelConsumption  *float64  `json:"fuelConsumption"`
}

// FuelCalculation is the costed part of a Result.
type FuelCalculation struct {
	DistanceKM        float64 `json:"distance_km"`
	FuelType          string  `json:"fuel_type"`
	ConsumptionPer100 float64 `json:"consumption_per_100km"`
	FuelNeeded        float64 `json:"fuel_needed_liters"`
	PricePerLiter     float64 `json:"fuel_price_per_liter"`
	TotalCost         float64 `json:"total_fuel_cost"`
	PriceSource       string  `json:"price_source"`
	SmartRouting      string  `json:"smart_routing"`
}

// Result is a route with its fuel cost.
type Result struct {
	Route Route           `json:"route"`
	Fuel  FuelCalculation `json:"fuelCalculation"`
}

// Planner combines routing and price resolution.
type Planner struct {
	router   Router
	resolver PriceResolver
	log      logrus.FieldLogger
}

// NewPlanner returns a Planner. log may be nil.
func NewPlanner(router Router, resolver PriceResolver, log logrus.FieldLogger) *Planner {
	if log == nil {
		log = logging.Discard()
	}
	return &Planner{router: router, resolver: resolver, log: log}
}

// Calculate routes req without costing fuel. The fuel fields of req are
// ignored.
func (p *Planner) Calculate(ctx context.Context, req Request) (Route, error) {
	rt, _, err := p.directions(ctx, req)
	return rt, err
}

// CalculateWithFuel routes req and costs the fuel at the destination price.
// Collaborator errors are returned unmodified.
func (p *Planner) CalculateWithFuel(ctx context.Context, req Request) (Result, error) {
	rt, end, err := p.directions(ctx, req)
	if err != nil {
		return Result{}, err
	}

	code := req.FuelType
	if code == "" {
		code = fuel.BenzinaRegular
	}
	consumption := DefaultConsumption
	if req.FuelConsumption != nil && *req.FuelConsumption > 0 {
		consumption = *req.FuelConsumption
	}

	res, err := p.resolver.Resolve(ctx, resolve.Query{Coordinates: end, Code: code, DistanceKM: rt.DistanceKM})
	if err != nil {
		return Result{}, err
	}

	needed := rt.DistanceKM / 100 * consumption
	cost := needed * res.Price
	p.log.WithFields(logrus.Fields{
		"distance_km": rt.DistanceKM,
		"fuel":        code,
		"cost":        round(cost, 2),
		"source":      res.Provenance,
	}).Info("route costed")

	return Result{
		Route: rt,
		Fuel: FuelCalculation{
			DistanceKM:        round(rt.DistanceKM, 1),
			FuelType:          code.DisplayName(),
			ConsumptionPer100: consumption,
			FuelNeeded:        round(needed, 2),
			PricePerLiter:     round(res.Price, 3),
			TotalCost:         round(cost, 2),
			PriceSource:       res.Provenance,
			SmartRouting:      res.Branch,
		},
	}, nil
}

// directions resolves both ends of req and routes between them. end is the
// resolved destination.
func (p *Planner) directions(ctx context.Context, req Request) (rt Route, end []float64, err error) {
	start, err := p.endpoint(ctx, req.StartCoordinates, req.StartLocation)
	if err != nil {
		return Route{}, nil, err
	}
	end, err = p.endpoint(ctx, req.EndCoordinates, req.EndLocation)
	if err != nil {
		return Route{}, nil, err
	}
	rt, err = p.router.Directions(ctx, start, end, req.Preference)
	if err != nil {
		return Route{}, nil, err
	}
	return rt, end, nil
}

func (p *Planner) endpoint(ctx context.Context, coords []float64, location string) ([]float64, error) {
	if len(coords) == 2 {
		return coords, nil
	}
	if location == "" {
		return nil, ErrMissingEndpoint
	}
	return p.router.Geocode(ctx, location)
}
