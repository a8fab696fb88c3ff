package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"

	"github.com/memohai/teleput/internal/metrics"
	"github.com/memohai/teleput/internal/server"
)

type fakeIntake struct {
	calls int
	err   error
}

func (f *fakeIntake) HandleWebhook(_ *http.Request) error {
	f.calls++
	return f.err
}

func TestTelegramWebhookHandler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		path   string
		err    error
		status int
		calls  int
	}{
		{name: "accepted", path: "/telegram", status: http.StatusOK, calls: 1},
		{name: "rejected", path: "/telegram", err: errors.New("bad json"), status: http.StatusBadRequest, calls: 1},
		{name: "disabled", path: "", status: http.StatusNotFound, calls: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			intake := &fakeIntake{err: tt.err}
			srv := server.NewServer(nil, "", NewTelegramWebhookHandler(nil, tt.path, intake))
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/telegram", strings.NewReader(`{}`)))
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.calls, intake.calls)
		})
	}
}

func TestMetricsHandler(t *testing.T) {
	t.Parallel()

	m := metrics.New()
	m.ObserveRequest("/post", "ok")
	srv := server.NewServer(nil, "", NewMetricsHandler("/metrics", m.Handler()))

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `teleput_relay_requests_total{endpoint="/post",outcome="ok"} 1`)
}

func TestMetricsHandlerDisabled(t *testing.T) {
	t.Parallel()

	srv := server.NewServer(nil, "", NewMetricsHandler("", promhttp.Handler()))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
