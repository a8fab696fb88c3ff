package storagechecker

import (
	"context"
	"log/slog"
	"time"

	"github.com/memohai/teleput/internal/healthcheck"
)

const (
	checkTypeStorage   = "storage.ping"
	defaultPingTimeout = 2 * time.Second
)

// Pinger verifies the storage connection. *pgxpool.Pool satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function, e.g. (*sql.DB).PingContext, to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// Counter reports how many bindings are stored.
type Counter interface {
	Count(ctx context.Context) (int64, error)
}

// Checker pings the binding store.
type Checker struct {
	logger  *slog.Logger
	driver  string
	pinger  Pinger
	counter Counter
	timeout time.Duration
}

func NewChecker(log *slog.Logger, driver string, pinger Pinger) *Checker {
	if log == nil {
		log = slog.Default()
	}
	return &Checker{
		logger:  log.With(slog.String("checker", "healthcheck_storage")),
		driver:  driver,
		pinger:  pinger,
		timeout: defaultPingTimeout,
	}
}

// SetCounter adds the binding count to a healthy result.
func (c *Checker) SetCounter(counter Counter) {
	c.counter = counter
}

func (c *Checker) ListChecks(ctx context.Context) []healthcheck.CheckResult {
	item := healthcheck.CheckResult{
		ID:       checkTypeStorage + "." + c.driver,
		Type:     checkTypeStorage,
		Metadata: map[string]any{"driver": c.driver},
	}
	if c.pinger == nil {
		item.Status = healthcheck.StatusWarn
		item.Summary = "Storage is not configured."
		return []healthcheck.CheckResult{item}
	}
	pingCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	start := time.Now()
	if err := c.pinger.Ping(pingCtx); err != nil {
		c.logger.Warn("storage ping failed", slog.Any("error", err))
		item.Status = healthcheck.StatusError
		item.Summary = "Storage is unreachable."
		item.Detail = err.Error()
		return []healthcheck.CheckResult{item}
	}
	item.Status = healthcheck.StatusOK
	item.Summary = "Storage is reachable."
	item.Metadata["latency_ms"] = time.Since(start).Milliseconds()
	if c.counter != nil {
		n, err := c.counter.Count(pingCtx)
		if err != nil {
			c.logger.Warn("count bindings failed", slog.Any("error", err))
			item.Status = healthcheck.StatusWarn
			item.Summary = "Storage is reachable but bindings cannot be read."
			item.Detail = err.Error()
			return []healthcheck.CheckResult{item}
		}
		item.Metadata["bindings"] = n
	}
	return []healthcheck.CheckResult{item}
}
