package fuel

import (
	"strconv"
	"strings"
)

const (
	DefaultMinPrice = 3.0
	DefaultMaxPrice = 20.0
)

// Range is an open interval of plausible prices.
type Range struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// Contains reports whether Min < v < Max.
func (r Range) Contains(v float64) bool { return v > r.Min && v < r.Max }

// Validator accepts price text inside a plausible range. The zero value uses
// the default (3, 20) interval for every kind.
type Validator struct {
	Default Range
	PerKind map[Kind]Range
}

// NewValidator returns a validator with the default range and optional
// per-kind overrides.
func NewValidator(overrides map[Kind]Range) *Validator {
	return &Validator{
		Default: Range{Min: DefaultMinPrice, Max: DefaultMaxPrice},
		PerKind: overrides,
	}
}

func (v *Validator) rangeFor(k Kind) Range {
	if v == nil {
		return Range{Min: DefaultMinPrice, Max: DefaultMaxPrice}
	}
	if r, ok := v.PerKind[k]; ok && r.Max > r.Min {
		return r
	}
	if v.Default.Max > v.Default.Min {
		return v.Default
	}
	return Range{Min: DefaultMinPrice, Max: DefaultMaxPrice}
}

// Valid reports whether text parses to a price inside the default range.
func (v *Validator) Valid(text string) bool {
	_, ok := v.Parse(text)
	return ok
}

// Parse normalizes the decimal separator and returns the price when it lies
// inside the default range.
func (v *Validator) Parse(text string) (float64, bool) {
	return v.ParseFor("", text)
}

// ParseFor is Parse with the range configured for kind k.
func (v *Validator) ParseFor(k Kind, text string) (float64, bool) {
	p, ok := ParsePrice(text)
	if !ok {
		return 0, false
	}
	if !v.rangeFor(k).Contains(p) {
		return 0, false
	}
	return p, true
}

// ParsePrice converts "7,45" or "7.45" to a float without range checks.
func ParsePrice(text string) (float64, bool) {
	s := strings.TrimSpace(text)
	if s == "" || strings.EqualFold(s, "N/A") {
		return 0, false
	}
	s = strings.ReplaceAll(s, ",", ".")
	p, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	// ParseFloat accepts "NaN" and "Inf"
	if p != p || p > 1e12 || p < -1e12 {
		return 0, false
	}
	return p, true
}
