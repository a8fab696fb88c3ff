package relay

import (
	"context"
	"log/slog"
	"time"

	"github.com/memohai/teleput/internal/channel"
	"github.com/memohai/teleput/internal/media"
)

// SendObserver records the outcome of each delivery.
type SendObserver interface {
	ObserveSend(kind media.Kind, size int64, err error)
}

// LoggingMiddleware logs every delivery with its kind, size and latency.
func LoggingMiddleware(log *slog.Logger) Middleware {
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("service", "relay_send"))
	return func(next SendFunc) SendFunc {
		return func(ctx context.Context, msg Message) error {
			start := time.Now()
			err := next(ctx, msg)
			attrs := []any{
				slog.Int64("chat_id", msg.ChatID),
				slog.String("kind", msg.Kind.String()),
				slog.Int64("size", attachmentSize(msg)),
				slog.Duration("elapsed", time.Since(start)),
			}
			if err != nil {
				attrs = append(attrs,
					slog.String("reason", string(channel.AsDeliveryError(err).Reason)),
					slog.Any("error", err),
				)
				log.Warn("send failed", attrs...)
				return err
			}
			log.Info("sent", attrs...)
			return nil
		}
	}
}

// MetricsMiddleware reports every delivery to obs.
func MetricsMiddleware(obs SendObserver) Middleware {
	return func(next SendFunc) SendFunc {
		return func(ctx context.Context, msg Message) error {
			err := next(ctx, msg)
			obs.ObserveSend(msg.Kind, attachmentSize(msg), err)
			return err
		}
	}
}

func attachmentSize(msg Message) int64 {
	if msg.Attachment == nil {
		return 0
	}
	return msg.Attachment.Size
}
