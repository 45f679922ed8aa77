// Package extract turns raw upstream bodies into a single best price.
//
// Each Strategy is a pure function over the body. A Chain runs strategies in
// order and stops at the first one that yields at least one valid price;
// results from different strategies are never mixed. A strategy may split
// its candidates into groups, which are tried in order the same way.
package extract

import (
	"strings"

	"fuelprice/internal/aggregate"
	"fuelprice/internal/fuel"
)

// Candidate is an unvalidated price found in a body.
type Candidate struct {
	Source    string
	Address   string
	PriceText string
}

// Strategy is a named extraction function. Extract must not have side
// effects and returns nil when its layout is absent. Groups, when set,
// replaces Extract inside a Chain.
type Strategy struct {
	Name    string
	Extract func(body string) []Candidate
	Groups  func(body string) [][]Candidate
}

func (s Strategy) groups(body string) [][]Candidate {
	if s.Groups != nil {
		return s.Groups(body)
	}
	return [][]Candidate{s.Extract(body)}
}

// Result is the outcome of a successful extraction.
type Result struct {
	Strategy string
	Price    float64
	Source   string
	Offers   []aggregate.Offer
}

// Chain validates candidates from an ordered list of strategies.
type Chain struct {
	Strategies []Strategy
	Validator  *fuel.Validator
}

// DefaultStrategies returns structured, script and legacy in that order.
func DefaultStrategies() []Strategy {
	return []Strategy{
		{Name: "structured", Extract: Structured, Groups: StructuredGroups},
		{Name: "script", Extract: ScriptText},
		{Name: "legacy", Extract: LegacyMarkup},
	}
}

// NewChain builds the default chain around v.
func NewChain(v *fuel.Validator) *Chain {
	return &Chain{Strategies: DefaultStrategies(), Validator: v}
}

// Extract runs the chain with the default price range.
func (c *Chain) Extract(body string) (Result, bool) {
	return c.ExtractFor("", body)
}

// ExtractFor runs the chain validating against the range configured for k.
// ok is false when no strategy produced a valid price.
func (c *Chain) ExtractFor(k fuel.Kind, body string) (Result, bool) {
	if strings.TrimSpace(body) == "" {
		return Result{}, false
	}
	for _, s := range c.Strategies {
		for _, cands := range s.groups(body) {
			offers := c.validate(k, cands)
			if len(offers) == 0 {
				continue
			}
			best := offers[0]
			for _, o := range offers[1:] {
				if o.Price < best.Price {
					best = o
				}
			}
			return Result{Strategy: s.Name, Price: best.Price, Source: best.Network, Offers: offers}, true
		}
	}
	return Result{}, false
}

func (c *Chain) validate(k fuel.Kind, cands []Candidate) []aggregate.Offer {
	var out []aggregate.Offer
	for _, cand := range cands {
		p, ok := c.Validator.ParseFor(k, cand.PriceText)
		if !ok {
			continue
		}
		out = append(out, aggregate.Offer{Network: cand.Source, Address: cand.Address, Price: p})
	}
	return out
}

const emptyMarker = "var rezultate = JSON.parse('null')"

// IsEmptyMarker reports whether body is an explicit "no results" page or
// lacks the results variable entirely.
func IsEmptyMarker(body string) bool {
	return strings.Contains(body, emptyMarker) || !strings.Contains(body, "rezultate")
}
