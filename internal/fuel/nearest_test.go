package fuel_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"fuelprice/internal/fuel"
)

func TestNearest_AnchorSelectsItself(t *testing.T) {
	t.Parallel()

	for _, a := range fuel.Anchors() {
		got, dist := fuel.NearestWithDistance([]float64{a.Lon, a.Lat})
		require.Equal(t, a.Name, got.Name)
		require.InDelta(t, 0, dist, 1e-9)
		require.Zero(t, fuel.Haversine(a.Lat, a.Lon, a.Lat, a.Lon))
	}
}

func TestNearest_TieGoesToRegistryOrder(t *testing.T) {
	t.Parallel()

	west := fuel.Anchor{Name: "West", Lat: 45, Lon: 24}
	east := fuel.Anchor{Name: "East", Lat: 45, Lon: 26}
	point := []float64{25, 45}

	got, _ := fuel.NearestIn([]fuel.Anchor{west, east}, point)
	require.Equal(t, "West", got.Name)

	got, _ = fuel.NearestIn([]fuel.Anchor{east, west}, point)
	require.Equal(t, "East", got.Name)
}

func TestNearest_CoordinatesAreLonLat(t *testing.T) {
	t.Parallel()

	// Bucharest centre resolves to Ilfov, not Prahova.
	require.Equal(t, "Ilfov", fuel.Nearest([]float64{26.1025, 44.4268}).Name)
	// Mangalia.
	require.Equal(t, "Constanta", fuel.Nearest([]float64{28.5833, 43.8167}).Name)
	// Targu Jiu.
	require.Equal(t, "Gorj", fuel.Nearest([]float64{23.2747, 45.0345}).Name)
}

func TestNearest_MalformedFallsBackToDefault(t *testing.T) {
	t.Parallel()

	for _, in := range [][]float64{
		nil,
		{},
		{23.5},
		{math.NaN(), 45},
		{200, 45},
		{25, -95},
	} {
		got, dist := fuel.NearestWithDistance(in)
		require.Equal(t, "Cluj", got.Name, "input %v", in)
		require.Equal(t, -1.0, dist)
	}
}

func TestHaversine_KnownDistance(t *testing.T) {
	t.Parallel()

	// Cluj to Timisoara is roughly 218 km as the crow flies.
	d := fuel.Haversine(46.7712, 23.6236, 45.7489, 21.2087)
	require.InDelta(t, 217.7, d, 0.5)
}

func TestParseCoordinates(t *testing.T) {
	t.Parallel()

	got, err := fuel.ParseCoordinates(" 23.62, 46.77")
	require.NoError(t, err)
	require.Equal(t, []float64{23.62, 46.77}, got)

	for _, in := range []string{"", "23.6", "a,b", "1,2,3", "23.6,100"} {
		_, err := fuel.ParseCoordinates(in)
		require.Error(t, err, in)
	}
}
