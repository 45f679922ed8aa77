package resolve

import (
	"context"

	"fuelprice/internal/aggregate"
	"fuelprice/internal/extract"
	"fuelprice/internal/fuel"
	"fuelprice/internal/provider"
)

// Live is a LiveSource that issues one Primary fetch and runs the
// extraction chain over the body. Wrap the fetcher in a cache to coalesce
// repeated lookups.
type Live struct {
	f     provider.Fetcher
	chain *extract.Chain
}

// NewLive returns a Live over f. A nil chain means the default chain.
func NewLive(f provider.Fetcher, chain *extract.Chain) *Live {
	if chain == nil {
		chain = extract.NewChain(fuel.NewValidator(nil))
	}
	return &Live{f: f, chain: chain}
}

func (l *Live) Lookup(ctx context.Context, city string, code fuel.Code) (float64, bool, error) {
	kind, err := code.Kind()
	if err != nil {
		return 0, false, err
	}
	body, err := l.f.Fetch(ctx, provider.Primary, provider.Request{
		FuelCode: string(code),
		Scope:    fuel.ScopeCounty,
		City:     city,
	})
	if err != nil {
		return 0, false, err
	}
	res, ok := l.chain.ExtractFor(kind, body)
	if !ok {
		return 0, false, nil
	}
	return res.Price, true, nil
}

// Listing is the per-station view of one live search.
type Listing struct {
	City     string            `json:"city"`
	Code     fuel.Code         `json:"fuel"`
	Network  string            `json:"network,omitempty"`
	Stations []aggregate.Offer `json:"stations"`
}

// Min returns the cheapest station price. ok is false for an empty listing.
func (l Listing) Min() (price float64, ok bool) {
	for i, o := range l.Stations {
		if i == 0 || o.Price < price {
			price = o.Price
		}
	}
	return price, len(l.Stations) > 0
}

// Stations lists the station offers a live search returns for city and code
// in upstream order. A non-empty network restricts the search to it.
func (l *Live) Stations(ctx context.Context, city string, code fuel.Code, network string) (Listing, error) {
	kind, err := code.Kind()
	if err != nil {
		return Listing{}, err
	}
	if canon, ok := fuel.LookupCity(city); ok {
		city = canon
	}
	req := provider.Request{FuelCode: string(code), Scope: fuel.ScopeCounty, City: city}
	if network != "" {
		network = aggregate.NormalizeNetwork(network)
		req.Networks = []string{network}
	}
	body, err := l.f.Fetch(ctx, provider.Primary, req)
	if err != nil {
		return Listing{}, err
	}

	out := Listing{City: city, Code: code, Network: network, Stations: []aggregate.Offer{}}
	if res, ok := l.chain.ExtractFor(kind, body); ok {
		out.Stations = res.Offers
	}
	return out, nil
}
