package media

import "errors"

var (
	// ErrTooLarge indicates the payload exceeds the configured max size.
	ErrTooLarge = errors.New("media payload too large")
	// ErrSpoolClosed indicates the spool was already released.
	ErrSpoolClosed = errors.New("spool closed")
)
