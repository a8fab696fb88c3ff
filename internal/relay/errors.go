package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/memohai/teleput/internal/bindings"
	"github.com/memohai/teleput/internal/channel"
	"github.com/memohai/teleput/internal/media"
	"github.com/memohai/teleput/internal/upload"
)

// ErrorKind is the caller-facing class of a relay failure.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindBadRequest
	KindUnauthorized
	KindEntityTooLarge
	KindNotImplemented
	KindForbidden
	KindGone
	KindRateLimited
	KindUnavailable
)

var kindNames = map[ErrorKind]string{
	KindInternal:       "internal",
	KindBadRequest:     "bad_request",
	KindUnauthorized:   "unauthorized",
	KindEntityTooLarge: "entity_too_large",
	KindNotImplemented: "not_implemented",
	KindForbidden:      "forbidden",
	KindGone:           "gone",
	KindRateLimited:    "rate_limited",
	KindUnavailable:    "unavailable",
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is a relay failure carrying a human readable reason and, for rate
// limits, how long the caller should wait.
type Error struct {
	Kind       ErrorKind
	Reason     string
	RetryAfter time.Duration
	Err        error
}

func newError(kind ErrorKind, reason string, err error) *Error {
	return &Error{Kind: kind, Reason: reason, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Reason
	}
	return fmt.Sprintf("%s: %v", e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus maps the kind to a response status code.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindEntityTooLarge:
		return http.StatusRequestEntityTooLarge
	case KindNotImplemented:
		return http.StatusNotImplemented
	case KindForbidden:
		return http.StatusForbidden
	case KindGone:
		return http.StatusGone
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// AsError converts any error into a relay Error; unknown errors become Internal.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var re *Error
	if errors.As(err, &re) {
		return re
	}
	return newError(KindInternal, "Internal error", err)
}

// fromDelivery translates a platform failure, once, at the send call site.
func fromDelivery(err error) *Error {
	de := channel.AsDeliveryError(err)
	switch de.Reason {
	case channel.ReasonForbidden:
		return newError(KindForbidden, "Recipient blocked the bot", de)
	case channel.ReasonGone:
		return newError(KindGone, "Conversation no longer exists", de)
	case channel.ReasonRateLimited:
		e := newError(KindRateLimited, "Rate limited by the messaging platform", de)
		e.RetryAfter = de.RetryAfter
		return e
	case channel.ReasonUnsupported:
		return newError(KindNotImplemented, "Content kind is not supported", de)
	case channel.ReasonInvalid:
		reason := "Content rejected"
		if de.Err != nil {
			reason += ": " + de.Err.Error()
		}
		return newError(KindBadRequest, reason, de)
	default:
		return newError(KindUnavailable, "Messaging platform error", de)
	}
}

// fromIngest translates failures that happen while reading an upload.
func fromIngest(err error, maxFileSize int64) *Error {
	switch {
	case errors.Is(err, bindings.ErrKeyNotFound):
		return newError(KindUnauthorized, "Incorrect key", err)
	case errors.Is(err, media.ErrTooLarge):
		return newError(KindEntityTooLarge, fmt.Sprintf("Max upload size is %d", maxFileSize), err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return newError(KindBadRequest, "Upload aborted", err)
	case errors.Is(err, upload.ErrMalformed), errors.Is(err, io.ErrUnexpectedEOF):
		return newError(KindBadRequest, "Malformed multipart body", err)
	default:
		return AsError(err)
	}
}

// collapseForPost folds platform failures into Unavailable for /post,
// keeping any retry hint.
func collapseForPost(e *Error) *Error {
	switch e.Kind {
	case KindForbidden, KindGone, KindRateLimited, KindNotImplemented, KindUnavailable:
		return &Error{
			Kind:       KindUnavailable,
			Reason:     "Telegram received error: " + e.Reason,
			RetryAfter: e.RetryAfter,
			Err:        e.Err,
		}
	default:
		return e
	}
}
