package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthz(t *testing.T) {
	logger := zerolog.Nop()
	h := NewServer(pinger{}, ":0", &logger).Handler()

	rec := get(t, h, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestReadyzReportsDatabase(t *testing.T) {
	logger := zerolog.Nop()

	ok := get(t, NewServer(pinger{}, ":0", &logger).Handler(), "/readyz")
	assert.Equal(t, http.StatusOK, ok.Code)

	down := get(t, NewServer(pinger{err: errors.New("locked")}, ":0", &logger).Handler(), "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, down.Code)
	assert.Contains(t, down.Body.String(), "locked")
}

func TestMetricsExposed(t *testing.T) {
	logger := zerolog.Nop()
	RunsTotal.WithLabelValues("succeeded").Inc()

	rec := get(t, NewServer(pinger{}, ":0", &logger).Handler(), "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ejcluster_runs_total")
}
