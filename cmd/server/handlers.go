package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"fuelprice/internal/acquire"
	"fuelprice/internal/fuel"
	"fuelprice/internal/metrics"
	"fuelprice/internal/provider"
	"fuelprice/internal/resolve"
	"fuelprice/internal/route"
	"fuelprice/internal/store"
)

type priceStore interface {
	All(ctx context.Context) ([]fuel.Quote, error)
	ByCity(ctx context.Context, city string) ([]fuel.Quote, error)
	Averages(ctx context.Context) (map[fuel.Kind]float64, error)
	LastUpdate(ctx context.Context) (time.Time, error)
}

type sweeper interface {
	Run(ctx context.Context) (acquire.Report, error)
	Probe(ctx context.Context, city string, code fuel.Code) (acquire.Probe, error)
}

type priceResolver interface {
	Resolve(ctx context.Context, q resolve.Query) (resolve.Resolution, error)
}

type stationLister interface {
	Stations(ctx context.Context, city string, code fuel.Code, network string) (resolve.Listing, error)
}

type tripPlanner interface {
	Calculate(ctx context.Context, req route.Request) (route.Route, error)
	CalculateWithFuel(ctx context.Context, req route.Request) (route.Result, error)
}

type api struct {
	store    priceStore
	sweeper  sweeper
	resolver priceResolver
	stations stationLister
	planner  tripPlanner
	log      logrus.FieldLogger
	// runTimeout bounds a sweep started over HTTP. The sweep is detached
	// from the request so a dropped client does not abort it.
	runTimeout time.Duration
}

func (a *api) routes(m *metrics.Metrics) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /api/fuelprices", a.handleAll)
	mux.HandleFunc("GET /api/fuelprices/city/{city}", a.handleCity)
	mux.HandleFunc("POST /api/fuelprices/update", a.handleUpdate)
	mux.HandleFunc("POST /api/fuelprices/test-update", a.handleTestUpdate)
	mux.HandleFunc("GET /api/fuelprices/average", a.handleAverage)
	mux.HandleFunc("GET /api/fuelprices/last-update", a.handleLastUpdate)
	mux.HandleFunc("GET /api/fuelprices/resolve", a.handleResolve)
	mux.HandleFunc("GET /api/fuelprices/stations", a.handleStations)
	mux.HandleFunc("POST /api/route/calculate", a.handlePlainRoute)
	mux.HandleFunc("POST /api/route/calculate-with-fuel", a.handleRoute)
	if m != nil {
		mux.Handle("GET /metrics", m.Handler())
	}
	return m.InstrumentHandler(withCORS(withGzip(a.recoverPanic(limitBody(mux)))))
}

func (a *api) handleAll(w http.ResponseWriter, r *http.Request) {
	quotes, err := a.store.All(r.Context())
	if err != nil {
		a.serverError(w, "list prices", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(quotes))
}

func (a *api) handleCity(w http.ResponseWriter, r *http.Request) {
	city := r.PathValue("city")
	quotes, err := a.store.ByCity(r.Context(), city)
	if err != nil {
		a.serverError(w, "city prices", err)
		return
	}
	if len(quotes) == 0 {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no prices for city %q", city))
		return
	}
	writeJSON(w, http.StatusOK, quotes)
}

type coverageResponse struct {
	Error    string      `json:"error"`
	Coverage float64     `json:"coverage"`
	Accepted int         `json:"accepted"`
	Total    int         `json:"total"`
	Failed   []fuel.Pair `json:"failed"`
}

func (a *api) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), a.runTimeout)
	defer cancel()

	rep, err := a.sweeper.Run(ctx)
	var cov *store.InsufficientCoverageError
	switch {
	case errors.As(err, &cov):
		writeJSON(w, http.StatusConflict, coverageResponse{
			Error:    cov.Error(),
			Coverage: cov.Ratio,
			Accepted: cov.Accepted,
			Total:    cov.Total,
			Failed:   nonNil(cov.Failed),
		})
	case err != nil:
		a.serverError(w, "sweep", err)
	default:
		writeJSON(w, http.StatusOK, rep)
	}
}

func (a *api) handleTestUpdate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	city := strings.TrimSpace(q.Get("city"))
	if city == "" {
		city = fuel.DefaultAnchor().Name
	}
	code := fuel.BenzinaRegular
	if v := strings.TrimSpace(q.Get("fuel")); v != "" {
		parsed, err := fuel.ParseCode(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		code = parsed
	}

	probe, err := a.sweeper.Probe(r.Context(), city, code)
	switch {
	case errors.Is(err, acquire.ErrUnknownCity), errors.Is(err, fuel.ErrUnknownFuelCode):
		writeError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		a.serverError(w, "probe", err)
	default:
		writeJSON(w, http.StatusOK, probe)
	}
}

func (a *api) handleAverage(w http.ResponseWriter, r *http.Request) {
	avgs, err := a.store.Averages(r.Context())
	if err != nil {
		a.serverError(w, "averages", err)
		return
	}
	writeJSON(w, http.StatusOK, avgs)
}

func (a *api) handleLastUpdate(w http.ResponseWriter, r *http.Request) {
	ts, err := a.store.LastUpdate(r.Context())
	if errors.Is(err, store.ErrEmpty) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		a.serverError(w, "last update", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]time.Time{"last_updated": ts})
}

func (a *api) handleResolve(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := resolve.Query{City: q.Get("city"), Code: fuel.Code(strings.TrimSpace(q.Get("fuel")))}

	var err error
	query.DistanceKM, err = parseFloat(q.Get("distance_km"), 0)
	if err != nil || math.IsNaN(query.DistanceKM) || math.IsInf(query.DistanceKM, 0) || query.DistanceKM < 0 {
		writeError(w, http.StatusBadRequest, "invalid distance_km")
		return
	}
	if lon, lat := q.Get("lon"), q.Get("lat"); lon != "" && lat != "" {
		x, errLon := parseFloat(lon, 0)
		y, errLat := parseFloat(lat, 0)
		if errLon != nil || errLat != nil {
			writeError(w, http.StatusBadRequest, "invalid lon/lat")
			return
		}
		query.Coordinates = []float64{x, y}
	}

	res, err := a.resolver.Resolve(r.Context(), query)
	switch {
	case errors.Is(err, fuel.ErrUnknownFuelCode):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, resolve.ErrNoPrice):
		writeError(w, http.StatusNotFound, err.Error())
	case err != nil:
		a.serverError(w, "resolve", err)
	default:
		writeJSON(w, http.StatusOK, res)
	}
}

type stationView struct {
	Price   float64 `json:"price"`
	Station string  `json:"station"`
}

type stationsResponse struct {
	City    string    `json:"city"`
	Fuel    fuel.Code `json:"fuel"`
	Network string    `json:"network,omitempty"`
	// MinPrice is the cheapest station price or "N/A".
	MinPrice any           `json:"min_price"`
	Stations []stationView `json:"stations"`
}

func (a *api) handleStations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	city := strings.TrimSpace(q.Get("city"))
	if city == "" {
		writeError(w, http.StatusBadRequest, "city is required")
		return
	}
	code := fuel.BenzinaRegular
	if v := strings.TrimSpace(q.Get("fuel")); v != "" {
		parsed, err := fuel.ParseCode(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		code = parsed
	}

	list, err := a.stations.Stations(r.Context(), city, code, strings.TrimSpace(q.Get("network")))
	switch {
	case errors.Is(err, fuel.ErrUnknownFuelCode):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, provider.ErrUpstreamUnavailable):
		a.log.WithError(err).Warn("station listing upstream failed")
		writeError(w, http.StatusBadGateway, err.Error())
		return
	case err != nil:
		a.serverError(w, "stations", err)
		return
	}

	out := stationsResponse{City: list.City, Fuel: list.Code, Network: list.Network, MinPrice: "N/A", Stations: []stationView{}}
	if p, ok := list.Min(); ok {
		out.MinPrice = p
	}
	for _, o := range list.Stations {
		out.Stations = append(out.Stations, stationView{Price: o.Price, Station: o.Label()})
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *api) handlePlainRoute(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRoute(w, r)
	if !ok {
		return
	}
	rt, err := a.planner.Calculate(r.Context(), req)
	if err != nil {
		a.routeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]route.Route{"route": rt})
}

func (a *api) handleRoute(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRoute(w, r)
	if !ok {
		return
	}
	res, err := a.planner.CalculateWithFuel(r.Context(), req)
	if err != nil {
		a.routeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func decodeRoute(w http.ResponseWriter, r *http.Request) (route.Request, bool) {
	var req route.Request
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return route.Request{}, false
	}
	return req, true
}

func (a *api) routeError(w http.ResponseWriter, err error) {
	var gerr *route.GeocodingError
	var derr *route.DirectionsError
	switch {
	case errors.Is(err, route.ErrMissingEndpoint), errors.Is(err, fuel.ErrUnknownFuelCode):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &gerr), errors.As(err, &derr):
		a.log.WithError(err).Warn("route collaborator failed")
		writeError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, resolve.ErrNoPrice):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		a.serverError(w, "route", err)
	}
}

func (a *api) serverError(w http.ResponseWriter, op string, err error) {
	a.log.WithError(err).WithField("op", op).Error("request failed")
	writeError(w, http.StatusInternalServerError, op+" failed")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func parseFloat(s string, def float64) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, nil
	}
	return strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
