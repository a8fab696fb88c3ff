// Package channel defines the contract between the relay and a messaging
// platform: outbound delivery, attachments, and platform failure reasons.
package channel

import (
	"context"
	"io"

	"github.com/memohai/teleput/internal/media"
)

// Attachment is a streamed file handed to a platform adapter. Reader is
// positioned at the start of the payload and owned by the caller.
type Attachment struct {
	Name   string
	Mime   string
	Size   int64
	Reader io.Reader
}

// Sender delivers content into a bound conversation.
type Sender interface {
	SendText(ctx context.Context, chatID int64, text string) error
	SendFile(ctx context.Context, chatID int64, kind media.Kind, att Attachment, caption string) error
}
