package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	httpadapter "github.com/couchcryptid/weather-stats/internal/adapter/http"
	"github.com/couchcryptid/weather-stats/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

func newTestServer(readyErr error, reports *httpadapter.Reports) *httpadapter.Server {
	return httpadapter.NewServer(":0", &mockReadiness{err: readyErr}, reports, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func get(t *testing.T, srv http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthzReturns200(t *testing.T) {
	rec := get(t, newTestServer(nil, nil), "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	rec := get(t, newTestServer(nil, nil), "/readyz")

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	rec := get(t, newTestServer(errors.New("station index not loaded yet"), nil), "/readyz")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "station index not loaded yet", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	rec := get(t, newTestServer(nil, nil), "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestReportsEndpoints(t *testing.T) {
	reports := httpadapter.NewReports()
	ctx := context.Background()
	require.NoError(t, reports.LoadReport(ctx, domain.YearReport{Year: 2001}))
	require.NoError(t, reports.LoadReport(ctx, domain.YearReport{
		Year:    2000,
		Results: []domain.AggregateResult{{Year: 2000, Kind: "TMIN", Mean: -5, Count: 1}},
		Missing: []string{"TMAX"},
	}))
	srv := newTestServer(nil, reports)

	rec := get(t, srv, "/reports")
	require.Equal(t, http.StatusOK, rec.Code)
	var all []domain.YearReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	require.Len(t, all, 2)
	assert.Equal(t, 2000, all[0].Year)
	assert.Equal(t, 2001, all[1].Year)

	rec = get(t, srv, "/reports/2000")
	require.Equal(t, http.StatusOK, rec.Code)
	var one domain.YearReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &one))
	assert.Equal(t, []string{"TMAX"}, one.Missing)
	assert.InDelta(t, -5.0, one.Results[0].Mean, 0)

	assert.Equal(t, http.StatusNotFound, get(t, srv, "/reports/1999").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, srv, "/reports/latest").Code)
}

func TestReportsRoutesDisabledWithoutStore(t *testing.T) {
	rec := get(t, newTestServer(nil, nil), "/reports")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
