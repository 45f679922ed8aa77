// Package fuel holds the domain vocabulary shared by every stage of the
// pipeline: fuel codes and kinds, quotes, the city registry and the price
// validator.
package fuel

import (
	"errors"
	"fmt"
	"time"
)

// Code is the fuel identifier understood by the upstream search form.
type Code string

// Kind is the fuel name persisted in the aggregate store.
type Kind string

const (
	BenzinaRegular  Code = "Benzina_Regular"
	MotorinaRegular Code = "Motorina_Regular"
	GPLCode         Code = "GPL"
	BenzinaPremium  Code = "Benzina_Premium"
	MotorinaPremium Code = "Motorina_Premium"
)

const (
	KindBenzinaStandard   Kind = "Benzina Standard"
	KindMotorinaStandard  Kind = "Motorina Standard"
	KindGPL               Kind = "GPL"
	KindBenzinaSuperioara Kind = "Benzina Superioara"
	KindMotorinaPremium   Kind = "Motorina Premium"
	KindElectric          Kind = "Electric"
)

// ErrUnknownFuelCode is returned for codes outside the request vocabulary.
var ErrUnknownFuelCode = errors.New("unknown fuel code")

var codeKinds = map[Code]Kind{
	BenzinaRegular:  KindBenzinaStandard,
	MotorinaRegular: KindMotorinaStandard,
	GPLCode:         KindGPL,
	BenzinaPremium:  KindBenzinaSuperioara,
	MotorinaPremium: KindMotorinaPremium,
}

var displayNames = map[Code]string{
	BenzinaRegular:  "Benzină Regulată",
	MotorinaRegular: "Motorină Standard",
	GPLCode:         "GPL",
	BenzinaPremium:  "Benzină Premium",
	MotorinaPremium: "Motorină Premium",
}

// Codes returns every request code in sweep order.
func Codes() []Code {
	return []Code{BenzinaRegular, MotorinaRegular, GPLCode, BenzinaPremium, MotorinaPremium}
}

// Kinds returns the storage vocabulary, including kinds no request code maps to.
func Kinds() []Kind {
	return []Kind{
		KindBenzinaStandard,
		KindMotorinaStandard,
		KindGPL,
		KindBenzinaSuperioara,
		KindMotorinaPremium,
		KindElectric,
	}
}

// Kind maps a request code to its storage name. Unknown codes are an error;
// there is no fallback kind.
func (c Code) Kind() (Kind, error) {
	k, ok := codeKinds[c]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownFuelCode, string(c))
	}
	return k, nil
}

// DisplayName returns the Romanian label shown to users, or the raw code.
func (c Code) DisplayName() string {
	if n, ok := displayNames[c]; ok {
		return n
	}
	return string(c)
}

// ParseCode validates s against the request vocabulary.
func ParseCode(s string) (Code, error) {
	c := Code(s)
	if _, err := c.Kind(); err != nil {
		return "", err
	}
	return c, nil
}

// Quote is one accepted price for a (city, kind) pair.
type Quote struct {
	City       string    `json:"city" db:"city"`
	Fuel       Kind      `json:"fuel_type" db:"fuel_type"`
	Price      float64   `json:"price" db:"price"`
	ObservedAt time.Time `json:"last_updated" db:"last_updated"`
}

// Pair is a single sweep combination.
type Pair struct {
	City string `json:"city"`
	Code Code   `json:"fuel"`
}

func (p Pair) String() string { return p.City + "/" + string(p.Code) }
