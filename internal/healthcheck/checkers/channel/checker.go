package channelchecker

import (
	"context"
	"log/slog"

	"github.com/memohai/teleput/internal/healthcheck"
)

const checkTypeChannelIntake = "channel.intake"

// IntakeObserver reports the current update intake mode; empty means stopped.
type IntakeObserver interface {
	Mode() string
}

// Checker evaluates whether the bot is receiving updates.
type Checker struct {
	logger   *slog.Logger
	platform string
	observer IntakeObserver
}

// NewChecker creates an intake health checker for the named platform.
func NewChecker(log *slog.Logger, platform string, observer IntakeObserver) *Checker {
	if log == nil {
		log = slog.Default()
	}
	return &Checker{
		logger:   log.With(slog.String("checker", "healthcheck_channel")),
		platform: platform,
		observer: observer,
	}
}

// ListChecks reports one intake check.
func (c *Checker) ListChecks(ctx context.Context) []healthcheck.CheckResult {
	item := healthcheck.CheckResult{
		ID:     checkTypeChannelIntake + "." + c.platform,
		Type:   checkTypeChannelIntake,
		Status: healthcheck.StatusError,
	}
	if err := ctx.Err(); err != nil {
		item.Status = healthcheck.StatusUnknown
		item.Summary = "Check was canceled."
		return []healthcheck.CheckResult{item}
	}
	if c.observer == nil {
		c.logger.Warn("channel healthcheck dependency is unavailable", slog.String("platform", c.platform))
		item.Status = healthcheck.StatusWarn
		item.Summary = "Intake observer is not available."
		return []healthcheck.CheckResult{item}
	}
	mode := c.observer.Mode()
	if mode == "" {
		item.Summary = "Update intake is stopped."
		return []healthcheck.CheckResult{item}
	}
	item.Status = healthcheck.StatusOK
	item.Summary = "Receiving updates."
	item.Metadata = map[string]any{"mode": mode}
	return []healthcheck.CheckResult{item}
}
