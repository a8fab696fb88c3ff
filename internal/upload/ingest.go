package upload

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/memohai/teleput/internal/media"
)

const (
	FieldKey   = "key"
	FieldRaw   = "raw"
	FieldText  = "text"
	FieldMedia = "media"
)

// Resolver maps a relay key to its conversation.
type Resolver interface {
	Resolve(ctx context.Context, token string) (int64, error)
}

// Options bounds what Ingest accepts.
type Options struct {
	MaxFileSize   int64
	MaxFieldBytes int64
	SpoolDir      string
}

// Media is a spooled attachment.
type Media struct {
	Name  string
	Mime  string
	spool *media.Spool
}

// Size returns the attachment size in bytes.
func (m *Media) Size() int64 {
	return m.spool.Size()
}

// Open rewinds the spool and returns a reader positioned at the first byte.
func (m *Media) Open() (io.Reader, error) {
	return m.spool.Rewind()
}

func (m *Media) close() error {
	return m.spool.Close()
}

// Upload is the accumulated state of one multipart request.
type Upload struct {
	ChatID int64
	HasKey bool
	Raw    bool
	Text   string
	Media  *Media
}

// Close releases the spooled attachment. Safe to call more than once.
func (u *Upload) Close() error {
	if u == nil || u.Media == nil {
		return nil
	}
	err := u.Media.close()
	u.Media = nil
	return err
}

// Ingest consumes every field of r. The key is resolved on arrival and an
// unknown key stops the read. On any error the partial upload is released.
func Ingest(ctx context.Context, r *Reader, resolver Resolver, opts Options) (*Upload, error) {
	if opts.MaxFileSize <= 0 || opts.MaxFieldBytes <= 0 {
		return nil, fmt.Errorf("upload limits must be positive")
	}
	up := &Upload{}
	ok := false
	defer func() {
		if !ok {
			_ = up.Close()
		}
	}()

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		field, err := r.Next()
		// NextPart wraps io.EOF for truncated bodies; only a bare EOF ends the form.
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		switch field.Name {
		case FieldKey:
			token, err := field.Text(opts.MaxFieldBytes)
			if err != nil {
				return nil, err
			}
			// A blank key counts as no key at all, matching /post.
			if strings.TrimSpace(token) == "" {
				continue
			}
			chatID, err := resolver.Resolve(ctx, token)
			if err != nil {
				return nil, err
			}
			up.ChatID, up.HasKey = chatID, true
		case FieldRaw:
			value, err := field.Text(opts.MaxFieldBytes)
			if err != nil {
				return nil, err
			}
			up.Raw = value == "1"
		case FieldText:
			value, err := field.Text(opts.MaxFieldBytes)
			if err != nil {
				return nil, err
			}
			up.Text = value
		case FieldMedia:
			if err := up.Close(); err != nil {
				return nil, err
			}
			m, err := spoolField(ctx, field, opts)
			if err != nil {
				return nil, err
			}
			up.Media = m
		default:
			if err := field.Discard(); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
			}
		}
	}
	ok = true
	return up, nil
}

// spoolField copies a media field to disk. An empty part without a file
// name, as browsers send for an unselected file input, yields no media.
func spoolField(ctx context.Context, field *Field, opts Options) (*Media, error) {
	spool, err := media.NewSpool(opts.SpoolDir)
	if err != nil {
		return nil, err
	}
	n, err := field.SpoolTo(ctx, spool, opts.MaxFileSize)
	if err != nil {
		_ = spool.Close()
		return nil, err
	}
	if n == 0 && !field.IsFile() {
		_ = spool.Close()
		return nil, nil
	}
	head, err := spool.Head(media.SniffBytes)
	if err != nil {
		_ = spool.Close()
		return nil, err
	}
	return &Media{
		Name:  media.FileName(field.FileName, head),
		Mime:  field.ContentType,
		spool: spool,
	}, nil
}
