// Package relay validates relay requests, resolves keys and forwards content
// to the messaging platform through a single send call site.
package relay

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/memohai/teleput/internal/bindings"
	"github.com/memohai/teleput/internal/channel"
	"github.com/memohai/teleput/internal/media"
	"github.com/memohai/teleput/internal/upload"
)

// KeyResolver maps a relay key to its conversation.
type KeyResolver interface {
	Resolve(ctx context.Context, token string) (int64, error)
}

// Message is one outbound delivery. Attachment is nil for plain text.
type Message struct {
	ChatID     int64
	Kind       media.Kind
	Text       string
	Attachment *channel.Attachment
}

// SendFunc performs one delivery.
type SendFunc func(ctx context.Context, msg Message) error

// Middleware wraps the send call site.
type Middleware func(next SendFunc) SendFunc

// PostRequest is the decoded body of a plain post.
type PostRequest struct {
	Key  string
	Text string
	// HasMedia is set when the body declared an attachment, which plain
	// posts cannot carry.
	HasMedia bool
}

// Relay dispatches validated content to a channel.Sender.
type Relay struct {
	logger *slog.Logger
	keys   KeyResolver
	sender channel.Sender
	send   SendFunc
	opts   upload.Options
}

// NewRelay builds a relay; middlewares run in registration order around every send.
func NewRelay(log *slog.Logger, keys KeyResolver, sender channel.Sender, opts upload.Options, middlewares ...Middleware) *Relay {
	if log == nil {
		log = slog.Default()
	}
	r := &Relay{
		logger: log.With(slog.String("service", "relay")),
		keys:   keys,
		sender: sender,
		opts:   opts,
	}
	send := r.deliver
	for i := len(middlewares) - 1; i >= 0; i-- {
		send = middlewares[i](send)
	}
	r.send = send
	return r
}

// Post relays plain text. Platform failures are all reported as Unavailable.
func (r *Relay) Post(ctx context.Context, req PostRequest) error {
	if strings.TrimSpace(req.Key) == "" {
		return newError(KindBadRequest, "Missing key", nil)
	}
	chatID, err := r.resolve(ctx, req.Key)
	if err != nil {
		return err
	}
	if req.Text == "" {
		return newError(KindBadRequest, "Missing content", nil)
	}
	if req.HasMedia {
		return newError(KindNotImplemented, "Attachments must be sent to /upload", nil)
	}
	if err := r.dispatch(ctx, Message{ChatID: chatID, Kind: media.KindText, Text: req.Text}); err != nil {
		return collapseForPost(AsError(err))
	}
	return nil
}

// Upload ingests a multipart body and relays its text or attachment.
func (r *Relay) Upload(ctx context.Context, reader *upload.Reader) error {
	up, err := upload.Ingest(ctx, reader, resolverFunc(r.resolve), r.opts)
	if err != nil {
		return fromIngest(err, r.opts.MaxFileSize)
	}
	defer func() {
		if err := up.Close(); err != nil {
			r.logger.Warn("release spool failed", slog.Any("error", err))
		}
	}()
	return r.Deliver(ctx, up)
}

// Deliver relays an ingested upload. The attachment, when present, takes the
// text as its caption.
func (r *Relay) Deliver(ctx context.Context, up *upload.Upload) error {
	if !up.HasKey {
		return newError(KindBadRequest, "Missing key", nil)
	}
	if up.Text == "" && up.Media == nil {
		return newError(KindBadRequest, "Nothing to post", nil)
	}
	if up.Media == nil {
		return r.dispatch(ctx, Message{ChatID: up.ChatID, Kind: media.KindText, Text: up.Text})
	}
	kind := media.Classify(up.Media.Mime, up.Raw)
	reader, err := up.Media.Open()
	if err != nil {
		return newError(KindInternal, "Internal error", err)
	}
	return r.dispatch(ctx, Message{
		ChatID: up.ChatID,
		Kind:   kind,
		Text:   up.Text,
		Attachment: &channel.Attachment{
			Name:   up.Media.Name,
			Mime:   up.Media.Mime,
			Size:   up.Media.Size(),
			Reader: reader,
		},
	})
}

func (r *Relay) resolve(ctx context.Context, token string) (int64, error) {
	chatID, err := r.keys.Resolve(ctx, token)
	if err == nil {
		return chatID, nil
	}
	if errors.Is(err, bindings.ErrKeyNotFound) {
		return 0, newError(KindUnauthorized, "Incorrect key", err)
	}
	r.logger.Error("resolve key failed", slog.Any("error", err))
	return 0, newError(KindInternal, "Internal error", err)
}

// dispatch is the single send call site; platform errors are translated here.
func (r *Relay) dispatch(ctx context.Context, msg Message) error {
	if err := r.send(ctx, msg); err != nil {
		return fromDelivery(err)
	}
	return nil
}

func (r *Relay) deliver(ctx context.Context, msg Message) error {
	if msg.Attachment == nil {
		return r.sender.SendText(ctx, msg.ChatID, msg.Text)
	}
	return r.sender.SendFile(ctx, msg.ChatID, msg.Kind, *msg.Attachment, msg.Text)
}

type resolverFunc func(ctx context.Context, token string) (int64, error)

func (f resolverFunc) Resolve(ctx context.Context, token string) (int64, error) {
	return f(ctx, token)
}
