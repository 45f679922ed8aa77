package fuel

import "strings"

// ScopeCounty is the location scope sent for every registry city.
const ScopeCounty = "Judet"

// Anchor is a named location with fixed coordinates.
type Anchor struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

var cities = []string{
	"Cluj", "Gorj", "Prahova", "Constanta", "Ilfov", "Arad", "Timisoara", "Suceava",
	"Brasov", "Sibiu", "Oradea", "Iasi", "Bacau", "Botosani", "Satu Mare", "Targu Mures",
}

// Order matters: ties in Nearest go to the earlier entry.
var anchors = []Anchor{
	{Name: "Cluj", Lat: 46.7712, Lon: 23.6236},
	{Name: "Gorj", Lat: 44.9147, Lon: 23.2719},
	{Name: "Prahova", Lat: 45.1, Lon: 26.0},
	{Name: "Constanta", Lat: 44.1598, Lon: 28.6348},
	{Name: "Ilfov", Lat: 44.5, Lon: 26.1},
	{Name: "Arad", Lat: 46.1866, Lon: 21.3123},
	{Name: "Timisoara", Lat: 45.7489, Lon: 21.2087},
	{Name: "Suceava", Lat: 47.6635, Lon: 26.2535},
}

// Cities returns the full location registry in sweep order.
func Cities() []string {
	out := make([]string, len(cities))
	copy(out, cities)
	return out
}

// Anchors returns the anchor subset in registry order.
func Anchors() []Anchor {
	out := make([]Anchor, len(anchors))
	copy(out, anchors)
	return out
}

// DefaultAnchor is used when coordinates are missing or malformed.
func DefaultAnchor() Anchor { return anchors[0] }

// LookupCity returns the canonical registry spelling of name.
func LookupCity(name string) (string, bool) {
	name = strings.TrimSpace(name)
	for _, c := range cities {
		if strings.EqualFold(c, name) {
			return c, true
		}
	}
	return "", false
}

// Pairs crosses every city with every code, cities outermost.
func Pairs(cs []string, codes []Code) []Pair {
	out := make([]Pair, 0, len(cs)*len(codes))
	for _, c := range cs {
		for _, code := range codes {
			out = append(out, Pair{City: c, Code: code})
		}
	}
	return out
}
