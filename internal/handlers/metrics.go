package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// MetricsHandler exposes a Prometheus handler on path; an empty path disables it.
type MetricsHandler struct {
	path    string
	handler http.Handler
}

func NewMetricsHandler(path string, handler http.Handler) *MetricsHandler {
	return &MetricsHandler{path: path, handler: handler}
}

func (h *MetricsHandler) Register(e *echo.Echo) {
	if h.path == "" || h.handler == nil {
		return
	}
	e.GET(h.path, echo.WrapHandler(h.handler))
}
