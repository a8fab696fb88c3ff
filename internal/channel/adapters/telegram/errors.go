package telegram

import (
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/memohai/teleput/internal/channel"
)

// asTelegramError unwraps an API error. The library returns *tgbotapi.Error
// while tests and older call sites use the value form.
func asTelegramError(err error) (tgbotapi.Error, bool) {
	if err == nil {
		return tgbotapi.Error{}, false
	}
	var ptr *tgbotapi.Error
	if errors.As(err, &ptr) && ptr != nil {
		return *ptr, true
	}
	var apiErr tgbotapi.Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return tgbotapi.Error{}, false
}

func isTelegramTooManyRequests(err error) bool {
	apiErr, ok := asTelegramError(err)
	return ok && apiErr.Code == 429
}

func getTelegramRetryAfter(err error) time.Duration {
	apiErr, ok := asTelegramError(err)
	if ok && apiErr.RetryAfter > 0 {
		return time.Duration(apiErr.RetryAfter) * time.Second
	}
	return 0
}

// mapTelegramError translates a Bot API failure into a channel.DeliveryError.
func mapTelegramError(err error) *channel.DeliveryError {
	apiErr, ok := asTelegramError(err)
	if !ok {
		return channel.NewDeliveryError(channel.ReasonUnavailable, err)
	}
	message := strings.ToLower(apiErr.Message)
	wrapped := fmt.Errorf("telegram: %w", err)
	switch {
	case isTelegramTooManyRequests(err):
		de := channel.NewDeliveryError(channel.ReasonRateLimited, wrapped)
		de.RetryAfter = getTelegramRetryAfter(err)
		return de
	case apiErr.MigrateToChatID != 0:
		return channel.NewDeliveryError(channel.ReasonGone, wrapped)
	case apiErr.Code == 403 && strings.Contains(message, "deactivated"):
		return channel.NewDeliveryError(channel.ReasonGone, wrapped)
	case apiErr.Code == 403:
		return channel.NewDeliveryError(channel.ReasonForbidden, wrapped)
	case apiErr.Code == 400 && (strings.Contains(message, "chat not found") || strings.Contains(message, "upgraded to a supergroup")):
		return channel.NewDeliveryError(channel.ReasonGone, wrapped)
	default:
		return channel.NewDeliveryError(channel.ReasonUnavailable, wrapped)
	}
}
