package fuel

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const earthRadiusKM = 6371.0

// Haversine returns the great-circle distance in kilometres.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKM * c
}

func toRad(deg float64) float64 { return deg * math.Pi / 180 }

// Nearest picks the closest anchor to coords given as [lon, lat], the order
// used by the routing service. Missing or malformed input yields the default
// anchor.
func Nearest(coords []float64) Anchor {
	a, _ := NearestWithDistance(coords)
	return a
}

// NearestWithDistance is Nearest that also returns the distance in km. The
// distance is -1 when the default anchor was used.
func NearestWithDistance(coords []float64) (Anchor, float64) {
	return NearestIn(anchors, coords)
}

// NearestIn runs the arg-min over list. Ties keep the earlier anchor. An empty
// list or invalid coords yield the default anchor.
func NearestIn(list []Anchor, coords []float64) (Anchor, float64) {
	if len(list) == 0 || !validLonLat(coords) {
		return DefaultAnchor(), -1
	}
	lon, lat := coords[0], coords[1]
	best := list[0]
	bestDist := math.MaxFloat64
	for _, a := range list {
		d := Haversine(lat, lon, a.Lat, a.Lon)
		if d < bestDist {
			best, bestDist = a, d
		}
	}
	return best, bestDist
}

func validLonLat(c []float64) bool {
	if len(c) < 2 {
		return false
	}
	lon, lat := c[0], c[1]
	if math.IsNaN(lon) || math.IsNaN(lat) || math.IsInf(lon, 0) || math.IsInf(lat, 0) {
		return false
	}
	return lon >= -180 && lon <= 180 && lat >= -90 && lat <= 90
}

// ParseCoordinates parses "lon,lat".
func ParseCoordinates(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return nil, fmt.Errorf("coordinates %q: want lon,lat", s)
	}
	out := make([]float64, 2)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("coordinates %q: %w", s, err)
		}
		out[i] = v
	}
	if !validLonLat(out) {
		return nil, fmt.Errorf("coordinates %q: out of range", s)
	}
	return out, nil
}
