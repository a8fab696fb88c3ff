package channel

import (
	"errors"
	"fmt"
	"time"
)

// Reason classifies a platform delivery failure.
type Reason string

const (
	// ReasonForbidden means the recipient blocked or removed the bot.
	ReasonForbidden Reason = "forbidden"
	// ReasonGone means the conversation no longer exists.
	ReasonGone Reason = "gone"
	// ReasonRateLimited means the platform asked the caller to slow down.
	ReasonRateLimited Reason = "rate_limited"
	// ReasonUnavailable is any other platform failure.
	ReasonUnavailable Reason = "unavailable"
	// ReasonUnsupported means the platform cannot deliver this kind of content.
	ReasonUnsupported Reason = "unsupported"
	// ReasonInvalid means the content breaks platform limits and was never sent.
	ReasonInvalid Reason = "invalid"
)

// DeliveryError is returned by Sender implementations for every failed send.
type DeliveryError struct {
	Reason     Reason
	RetryAfter time.Duration
	Err        error
}

// NewDeliveryError wraps err with a failure reason.
func NewDeliveryError(reason Reason, err error) *DeliveryError {
	return &DeliveryError{Reason: reason, Err: err}
}

func (e *DeliveryError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("delivery failed: %s", e.Reason)
	}
	return fmt.Sprintf("delivery failed (%s): %v", e.Reason, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// AsDeliveryError extracts a DeliveryError from err. Errors of any other type
// are reported as unavailable.
func AsDeliveryError(err error) *DeliveryError {
	if err == nil {
		return nil
	}
	var de *DeliveryError
	if errors.As(err, &de) {
		return de
	}
	return NewDeliveryError(ReasonUnavailable, err)
}
