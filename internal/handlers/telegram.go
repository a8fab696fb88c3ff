package handlers

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

// WebhookIntake processes a pushed Telegram update.
type WebhookIntake interface {
	HandleWebhook(r *http.Request) error
}

// TelegramWebhookHandler accepts updates when the bot runs in webhook mode.
type TelegramWebhookHandler struct {
	logger *slog.Logger
	path   string
	intake WebhookIntake
}

// NewTelegramWebhookHandler returns a handler that registers nothing when path is empty.
func NewTelegramWebhookHandler(log *slog.Logger, path string, intake WebhookIntake) *TelegramWebhookHandler {
	if log == nil {
		log = slog.Default()
	}
	return &TelegramWebhookHandler{
		logger: log.With(slog.String("handler", "telegram_webhook")),
		path:   path,
		intake: intake,
	}
}

func (h *TelegramWebhookHandler) Register(e *echo.Echo) {
	if h.path == "" || h.intake == nil {
		return
	}
	e.POST(h.path, h.Handle)
}

func (h *TelegramWebhookHandler) Handle(c echo.Context) error {
	if err := h.intake.HandleWebhook(c.Request()); err != nil {
		h.logger.Warn("webhook update rejected", slog.Any("error", err))
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid update")
	}
	return c.NoContent(http.StatusOK)
}
