package handlers

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/memohai/teleput/internal/healthcheck"
)

// HealthHandler serves the detailed runtime check report.
type HealthHandler struct {
	logger   *slog.Logger
	checkers []healthcheck.Checker
}

func NewHealthHandler(log *slog.Logger, checkers ...healthcheck.Checker) *HealthHandler {
	if log == nil {
		log = slog.Default()
	}
	return &HealthHandler{
		logger:   log.With(slog.String("handler", "health")),
		checkers: checkers,
	}
}

func (h *HealthHandler) Register(e *echo.Echo) {
	e.GET("/healthz", h.Report)
}

// Report answers 200 unless a check failed, then 503.
func (h *HealthHandler) Report(c echo.Context) error {
	report := healthcheck.Run(c.Request().Context(), h.checkers...)
	status := http.StatusOK
	if !report.Healthy() {
		h.logger.Warn("health check failed", slog.String("status", report.Status))
		status = http.StatusServiceUnavailable
	}
	return c.JSON(status, report)
}
