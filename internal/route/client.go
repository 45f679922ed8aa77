// Package route talks to OpenRouteService and costs a trip's fuel.
package route

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"fuelprice/internal/logging"
)

const (
	DefaultBaseURL = "https://api.openrouteservice.org"
	geocodePath    = "/geocode/search"
	directionsPath = "/v2/directions/driving-car"
)

var errNoMatch = errors.New("no match")

// GeocodingError is returned when a location cannot be turned into
// coordinates.
type GeocodingError struct {
	Location string
	Status   int
	Err      error
}

func (e *GeocodingError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("geocode %q: status %d", e.Location, e.Status)
	}
	return fmt.Sprintf("geocode %q: %v", e.Location, e.Err)
}

func (e *GeocodingError) Unwrap() error { return e.Err }

// DirectionsError is returned when no route could be computed.
type DirectionsError struct {
	Status int
	Body   string
	Err    error
}

func (e *DirectionsError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("directions: status %d: %s", e.Status, e.Body)
	}
	return fmt.Sprintf("directions: %v", e.Err)
}

func (e *DirectionsError) Unwrap() error { return e.Err }

// Route is the summary of the first route returned.
type Route struct {
	DistanceM   float64 `json:"distance_m"`
	DistanceKM  float64 `json:"distance_km"`
	DurationS   float64 `json:"duration_s"`
	DurationMin float64 `json:"duration_min"`
	DurationH   float64 `json:"duration_h"`
	Geometry    string  `json:"geometry"`
}

// Client is an OpenRouteService client.
type Client struct {
	rest   *resty.Client
	apiKey string
	log    logrus.FieldLogger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL overrides DefaultBaseURL.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		if u != "" {
			c.rest.SetBaseURL(strings.TrimRight(u, "/"))
		}
	}
}

// WithClientLogger sets the logger.
func WithClientLogger(l logrus.FieldLogger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// NewClient builds a Client over hc, which may be shared with other callers.
func NewClient(hc *http.Client, apiKey string, opts ...ClientOption) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	c := &Client{
		rest:   resty.NewWithClient(hc).SetBaseURL(DefaultBaseURL).SetHeader("Accept", "application/json"),
		apiKey: apiKey,
		log:    logging.Discard(),
	}
	for _, o := range opts {
		o(c)
	}
	c.rest.SetLogger(c.log)
	return c
}

type geocodeResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"features"`
}

// Geocode returns the [lon, lat] of the best match for text.
func (c *Client) Geocode(ctx context.Context, text string) ([]float64, error) {
	var out geocodeResponse
	res, err := c.rest.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"api_key": c.apiKey, "text": text, "size": "1"}).
		SetResult(&out).
		Get(geocodePath)
	if err != nil {
		return nil, &GeocodingError{Location: text, Err: err}
	}
	if res.IsError() {
		return nil, &GeocodingError{Location: text, Status: res.StatusCode()}
	}
	if len(out.Features) == 0 || len(out.Features[0].Geometry.Coordinates) < 2 {
		return nil, &GeocodingError{Location: text, Err: errNoMatch}
	}
	coords := out.Features[0].Geometry.Coordinates[:2]
	c.log.WithFields(logrus.Fields{"location": text, "lon": coords[0], "lat": coords[1]}).Debug("geocoded")
	return coords, nil
}

type directionsRequest struct {
	Coordinates  [][]float64 `json:"coordinates"`
	Preference   string      `json:"preference"`
	Instructions bool        `json:"instructions"`
}

type directionsResponse struct {
	Routes []struct {
		Summary struct {
			Distance *float64 `json:"distance"`
			Duration *float64 `json:"duration"`
		} `json:"summary"`
		Geometry string `json:"geometry"`
	} `json:"routes"`
}

// NormalizePreference maps anything but fastest or shortest to recommended.
func NormalizePreference(p string) string {
	switch strings.ToLower(strings.TrimSpace(p)) {
	case "fastest":
		return "fastest"
	case "shortest":
		return "shortest"
	default:
		return "recommended"
	}
}

// Directions computes a driving route between two [lon, lat] points.
func (c *Client) Directions(ctx context.Context, start, end []float64, preference string) (Route, error) {
	var out directionsResponse
	res, err := c.rest.R().
		SetContext(ctx).
		SetHeader("Authorization", c.apiKey).
		SetBody(directionsRequest{
			Coordinates: [][]float64{start, end},
			Preference:  NormalizePreference(preference),
		}).
		SetResult(&out).
		Post(directionsPath)
	if err != nil {
		return Route{}, &DirectionsError{Err: err}
	}
	if res.IsError() {
		return Route{}, &DirectionsError{Status: res.StatusCode(), Body: truncate(res.String(), 200)}
	}
	if len(out.Routes) == 0 {
		return Route{}, &DirectionsError{Err: errors.New("no route")}
	}
	r := out.Routes[0]
	if r.Summary.Distance == nil || r.Summary.Duration == nil || r.Geometry == "" {
		return Route{}, &DirectionsError{Err: errors.New("incomplete route summary")}
	}
	m, s := *r.Summary.Distance, *r.Summary.Duration
	return Route{
		DistanceM:   math.Round(m),
		DistanceKM:  round(m/1000, 1),
		DurationS:   math.Round(s),
		DurationMin: math.Round(s / 60),
		DurationH:   round(s/3600, 1),
		Geometry:    r.Geometry,
	}, nil
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
