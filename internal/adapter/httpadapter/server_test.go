package httpadapter_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/couchcryptid/climate-impact-metrics/internal/adapter/httpadapter"
	"github.com/couchcryptid/climate-impact-metrics/internal/domain"
	"github.com/couchcryptid/climate-impact-metrics/internal/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type fixedStatus domain.RunStatus

func (f fixedStatus) Status() domain.RunStatus { return domain.RunStatus(f) }

func newTestServer(readyErr error, g prometheus.Gatherer) *httpadapter.Server {
	if g == nil {
		g = prometheus.NewRegistry()
	}
	status := fixedStatus{RunID: "run-1", Metric: "NPP", Periods: []string{"ann", "djf"}, Completed: []string{"ann"}, Current: "djf"}
	return httpadapter.NewServer(":0", &mockReadiness{err: readyErr}, status, g, slog.Default())
}

func get(srv *httpadapter.Server, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthzReturns200(t *testing.T) {
	rec := get(newTestServer(nil, nil), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	rec := get(newTestServer(nil, nil), "/readyz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	rec := get(newTestServer(fmt.Errorf("runner has not loaded any instance yet"), nil), "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := observability.NewMetricsForTesting()
	require.NoError(t, reg.Register(m.RunFailures))
	m.RunFailures.Inc()

	rec := get(newTestServer(nil, reg), "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "cimt_run_failures_total 1")
}

func TestStatusEndpoint(t *testing.T) {
	rec := get(newTestServer(nil, nil), "/status")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var got domain.RunStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "NPP", got.Metric)
	assert.Equal(t, []string{"ann"}, got.Completed)
	assert.Equal(t, "djf", got.Current)
	assert.False(t, got.Done)
	assert.NotContains(t, rec.Body.String(), "started_at")
}

func TestPostIsRejected(t *testing.T) {
	srv := newTestServer(nil, nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/healthz", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
