package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestInstrumentHandler_CountsByCanonicalPath(t *testing.T) {
	t.Parallel()

	m := New()
	h := m.InstrumentHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "Nowhere") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))

	for _, p := range []string{"/api/fuelprices/city/Cluj", "/api/fuelprices/city/Arad", "/api/fuelprices/city/Nowhere"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}

	require.Equal(t, 2.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/api/fuelprices/city/:city", "200")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/api/fuelprices/city/:city", "404")))
	require.Equal(t, 0.0, testutil.ToFloat64(m.httpInFlight))
}

func TestInstrumentHandler_SkipsMetricsEndpoint(t *testing.T) {
	t.Parallel()

	m := New()
	h := m.InstrumentHandler(m.Handler())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 0, testutil.CollectAndCount(m.httpRequests))
}

func TestSweepCollectors(t *testing.T) {
	t.Parallel()

	m := New()
	m.ObserveFetch("primary", "ok")
	m.ObserveFetch("primary", "ok")
	m.ObserveFetch("alternate", "error")
	m.ObservePair("accepted")
	m.ObserveRun(90*time.Second, 0.55)

	require.Equal(t, 2.0, testutil.ToFloat64(m.fetches.WithLabelValues("primary", "ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.fetches.WithLabelValues("alternate", "error")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.pairs.WithLabelValues("accepted")))
	require.Equal(t, 0.55, testutil.ToFloat64(m.coverage))
}

func TestNilMetricsIsNoop(t *testing.T) {
	t.Parallel()

	var m *Metrics
	m.ObserveFetch("primary", "ok")
	m.ObservePair("failed")
	m.ObserveRun(time.Second, 1)

	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
	require.NotNil(t, m.InstrumentHandler(next))
}

func TestCanonicalPath(t *testing.T) {
	t.Parallel()

	require.Equal(t, "/", CanonicalPath(""))
	require.Equal(t, "/", CanonicalPath("/"))
	require.Equal(t, "/healthz", CanonicalPath("/healthz"))
	require.Equal(t, "/api/fuelprices/average", CanonicalPath("/api/fuelprices/average/"))
	require.Equal(t, "/api/fuelprices/city/:city", CanonicalPath("/api/fuelprices/city/Satu Mare"))
}
