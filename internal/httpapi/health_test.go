package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/naviscope/naviscope/internal/discovery"
	"github.com/naviscope/naviscope/internal/engine"
)

func newTestEngine(t *testing.T) *engine.Engine {
	t.Helper()
	pipeline := discovery.NewPipeline(discovery.NewRegistry(), 1, nil)
	e, err := engine.New(t.TempDir(), pipeline)
	require.NoError(t, err)
	return e
}

func TestHealthzReportsGraphVersion(t *testing.T) {
	e := newTestEngine(t)
	reg := prometheus.NewRegistry()
	s := New(e, reg)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "ok", body.Status)
	require.Equal(t, uint64(1), body.GraphVer)
}

func TestMetricsServesPrometheusExposition(t *testing.T) {
	e := newTestEngine(t)
	reg := prometheus.NewRegistry()
	m := engine.NewMetrics(reg)
	_ = m
	s := New(e, reg)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "naviscope_graph_version")
}
