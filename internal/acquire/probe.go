package acquire

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"fuelprice/internal/extract"
	"fuelprice/internal/fuel"
)

// ErrUnknownCity is returned for a city outside the registry.
var ErrUnknownCity = errors.New("unknown city")

const snippetLen = 500

// Probe is the result of a single-pair dry run.
type Probe struct {
	Success  bool        `json:"success"`
	City     string      `json:"city"`
	Fuel     fuel.Code   `json:"fuel"`
	Price    float64     `json:"price,omitempty"`
	Profile  string      `json:"profile,omitempty"`
	Strategy string      `json:"strategy,omitempty"`
	Message  string      `json:"message"`
	Debug    *ProbeDebug `json:"debug,omitempty"`
}

// ProbeDebug describes the last body seen.
type ProbeDebug struct {
	ResponseLength int    `json:"response_length"`
	HasResults     bool   `json:"contains_rezultate"`
	EmptyResults   bool   `json:"json_null"`
	Snippet        string `json:"response_snippet"`
}

// Probe runs one pair through the retry ladder without touching the store.
// Upstream failures are reported in the Probe; err is only set for an
// unknown city or code, or a canceled ctx.
func (o *Orchestrator) Probe(ctx context.Context, city string, code fuel.Code) (Probe, error) {
	name, ok := fuel.LookupCity(city)
	if !ok {
		return Probe{}, fmt.Errorf("%w: %q", ErrUnknownCity, city)
	}
	if _, err := code.Kind(); err != nil {
		return Probe{}, err
	}

	p := fuel.Pair{City: name, Code: code}
	log := o.log.WithField("probe", p.String())
	out := o.acquire(ctx, log, p)
	if err := ctx.Err(); err != nil {
		return Probe{}, err
	}

	res := Probe{City: name, Fuel: code, Profile: out.profile.String(), Debug: debugFor(out.body)}
	if out.err != nil {
		res.Message = out.err.Error()
		return res, nil
	}
	res.Success = true
	res.Price = out.quote.Price
	res.Strategy = out.strategy
	res.Message = fmt.Sprintf("%s %s: %.2f RON", name, code.DisplayName(), out.quote.Price)
	return res, nil
}

func debugFor(body string) *ProbeDebug {
	snippet := body
	if r := []rune(body); len(r) > snippetLen {
		snippet = string(r[:snippetLen])
	}
	return &ProbeDebug{
		ResponseLength: len(body),
		HasResults:     strings.Contains(body, "rezultate"),
		EmptyResults:   extract.IsEmptyMarker(body) && strings.Contains(body, "rezultate"),
		Snippet:        snippet,
	}
}
