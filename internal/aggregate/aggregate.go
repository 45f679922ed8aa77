package aggregate

import (
	"math"
	"sort"
	"strings"
)

// Offer is one validated station price tagged with its network.
type Offer struct {
	Network string  `json:"network"`
	Address string  `json:"address,omitempty"`
	Price   float64 `json:"price"`
}

// Label renders the offer as "Network - address", or just the network when
// the address is unknown.
func (o Offer) Label() string {
	if o.Address == "" {
		return o.Network
	}
	return o.Network + " - " + o.Address
}

// aliasMap normalizes the network spellings seen in upstream payloads.
var aliasMap = map[string]string{
	"petrom":            "Petrom",
	"omv petrom":        "Petrom",
	"petrom express":    "Petrom",
	"omv":               "OMV",
	"rompetrol":         "Rompetrol",
	"rompetrol express": "Rompetrol",
	"lukoil":            "Lukoil",
	"mol":               "Mol",
	"socar":             "Socar",
	"gazprom":           "Gazprom",
}

// NormalizeNetwork maps a raw network tag to its canonical name. Unknown tags
// are trimmed and returned unchanged.
func NormalizeNetwork(src string) string {
	s := strings.Join(strings.Fields(src), " ")
	if norm, ok := aliasMap[strings.ToLower(s)]; ok {
		return norm
	}
	return s
}

// Summary describes the offers of one extraction.
type Summary struct {
	Count       int     `json:"count"`
	Min         float64 `json:"min"`
	Max         float64 `json:"max"`
	PetromCount int     `json:"petrom_count"`
	PetromAvg   float64 `json:"petrom_avg"`
	OthersCount int     `json:"others_count"`
	OthersAvg   float64 `json:"others_avg"`
}

// Summarize computes min/max and the Petrom average against every other
// network. Averages are zero when their group is empty.
func Summarize(offers []Offer) Summary {
	var s Summary
	if len(offers) == 0 {
		return s
	}
	s.Min, s.Max = math.MaxFloat64, -math.MaxFloat64
	var petromSum, othersSum float64
	for _, o := range offers {
		s.Count++
		s.Min = math.Min(s.Min, o.Price)
		s.Max = math.Max(s.Max, o.Price)
		if NormalizeNetwork(o.Network) == "Petrom" {
			s.PetromCount++
			petromSum += o.Price
		} else {
			s.OthersCount++
			othersSum += o.Price
		}
	}
	if s.PetromCount > 0 {
		s.PetromAvg = Round2(petromSum / float64(s.PetromCount))
	}
	if s.OthersCount > 0 {
		s.OthersAvg = Round2(othersSum / float64(s.OthersCount))
	}
	return s
}

// BestByNetwork collapses offers to the cheapest one per normalized network,
// sorted by price then network name.
func BestByNetwork(offers []Offer) []Offer {
	best := make(map[string]Offer, len(offers))
	for _, o := range offers {
		n := NormalizeNetwork(o.Network)
		if cur, ok := best[n]; !ok || o.Price < cur.Price {
			best[n] = Offer{Network: n, Price: o.Price}
		}
	}
	out := make([]Offer, 0, len(best))
	for _, v := range best {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Price != out[j].Price {
			return out[i].Price < out[j].Price
		}
		return out[i].Network < out[j].Network
	})
	return out
}

// Round2 rounds half away from zero to two decimals.
func Round2(v float64) float64 { return math.Round(v*100) / 100 }
