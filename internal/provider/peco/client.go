// Package peco fetches search results from the peco-online.ro price
// comparison site.
package peco

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"fuelprice/internal/httpx"
	"fuelprice/internal/logging"
	"fuelprice/internal/provider"
)

const (
	DefaultBaseURL = "https://www.peco-online.ro"
	searchPath     = "/index.php"
)

var errUnknownProfile = errors.New("unknown request profile")

// Networks are the station networks selected when a request names none.
var Networks = []string{"Petrom", "OMV", "Rompetrol", "Lukoil", "Mol", "Socar", "Gazprom"}

// SessionNetworks is the reduced selection posted by the session-primed profile.
var SessionNetworks = []string{"Petrom", "OMV", "Rompetrol"}

//go:generate mockgen -package=peco_test -destination=mock_round_tripper_test.go net/http RoundTripper

// Client is a provider.Fetcher for peco-online.ro.
type Client struct {
	// baseURL is scheme and host, without the search path.
	baseURL string
	// http is the pooled client shared with the rest of the process.
	http *httpx.Client
	// rest wraps http for the stateless profiles.
	rest *resty.Client
	// header contains additional headers to be sent with each request.
	header          http.Header
	networks        []string
	sessionNetworks []string
	log             logrus.FieldLogger
}

// Option is a configuration option for Client.
type Option func(*Client)

// WithBaseURL overrides the upstream origin.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets the pooled client used for every profile.
func WithHTTPClient(hc *httpx.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithHeader sets additional headers to be sent with each request.
func WithHeader(header http.Header) Option {
	return func(c *Client) {
		for key, values := range header {
			for _, value := range values {
				c.header.Add(key, value)
			}
		}
	}
}

// WithNetworks replaces the default network selection.
func WithNetworks(networks ...string) Option {
	return func(c *Client) {
		if len(networks) > 0 {
			c.networks = networks
		}
	}
}

// WithSessionNetworks replaces the session-primed network selection.
func WithSessionNetworks(networks ...string) Option {
	return func(c *Client) {
		if len(networks) > 0 {
			c.sessionNetworks = networks
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// New creates a Client.
func New(options ...Option) *Client {
	c := &Client{
		baseURL:         DefaultBaseURL,
		header:          http.Header{},
		networks:        Networks,
		sessionNetworks: SessionNetworks,
		log:             logging.Discard(),
	}
	for _, option := range options {
		option(c)
	}
	if c.http == nil {
		c.http = httpx.New(30 * time.Second)
	}
	c.rest = c.newResty(c.http.HTTP, c.http.UserAgent)
	return c
}

func (c *Client) Name() string { return "peco-online" }

// Fetch runs one request profile and returns the raw body.
func (c *Client) Fetch(ctx context.Context, profile provider.Profile, req provider.Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &provider.UpstreamError{Profile: profile, Err: err}
	}
	log := c.log.WithFields(logrus.Fields{"profile": profile.String(), "city": req.City, "fuel": req.FuelCode})
	var (
		body string
		err  error
	)
	switch profile {
	case provider.Primary:
		body, err = c.postForm(ctx, c.rest, profile, req, c.networks)
	case provider.Alternate:
		body, err = c.getQuery(ctx, req)
	case provider.SessionPrimed:
		body, err = c.sessionPrimed(ctx, req)
	default:
		return "", &provider.UpstreamError{Profile: profile, Err: errUnknownProfile}
	}
	if err != nil {
		log.WithError(err).Debug("fetch failed")
		return "", err
	}
	log.WithField("bytes", len(body)).Debug("fetched")
	return body, nil
}

func (c *Client) newResty(hc *http.Client, userAgent string) *resty.Client {
	r := resty.NewWithClient(hc).SetLogger(c.log)
	r.SetHeaders(c.http.Headers)
	if userAgent != "" {
		r.SetHeader("User-Agent", userAgent)
	}
	for key, values := range c.header {
		r.Header[http.CanonicalHeaderKey(key)] = values
	}
	return r
}

func (c *Client) searchURL() string { return c.baseURL + searchPath }

func (c *Client) postForm(ctx context.Context, rc *resty.Client, profile provider.Profile, req provider.Request, fallback []string) (string, error) {
	res, err := rc.R().
		SetContext(ctx).
		SetFormDataFromValues(formValues(req, fallback, true)).
		Post(c.searchURL())
	return result(profile, res, err)
}

func (c *Client) getQuery(ctx context.Context, req provider.Request) (string, error) {
	res, err := c.rest.R().
		SetContext(ctx).
		SetQueryParamsFromValues(formValues(req, nil, false)).
		Get(c.searchURL())
	return result(provider.Alternate, res, err)
}

// sessionPrimed loads the landing page in a fresh cookie session, then posts
// the search form from it.
func (c *Client) sessionPrimed(ctx context.Context, req provider.Request) (string, error) {
	rc := c.newResty(c.http.WithSession(), httpx.FirefoxUA).
		SetHeader("Referer", c.baseURL+"/")

	res, err := rc.R().SetContext(ctx).Get(c.baseURL + "/")
	if _, err := result(provider.SessionPrimed, res, err); err != nil {
		return "", err
	}
	return c.postForm(ctx, rc, provider.SessionPrimed, req, c.sessionNetworks)
}

// formValues builds the search fields. fallback is used when req names no
// networks; a nil fallback leaves the selection out entirely.
func formValues(req provider.Request, fallback []string, submit bool) url.Values {
	v := url.Values{}
	v.Set("carburant", req.FuelCode)
	v.Set("locatie", req.Scope)
	v.Set("nume_locatie", req.City)
	networks := req.Networks
	if len(networks) == 0 {
		networks = fallback
	}
	for _, n := range networks {
		v.Add("retele[]", n)
	}
	if submit {
		v.Set("Submit", "Cauta")
	}
	return v
}

func result(profile provider.Profile, res *resty.Response, err error) (string, error) {
	if err != nil {
		return "", &provider.UpstreamError{Profile: profile, Err: err}
	}
	if !res.IsSuccess() {
		return "", &provider.UpstreamError{Profile: profile, Status: res.StatusCode()}
	}
	return res.String(), nil
}
