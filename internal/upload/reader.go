// Package upload turns a streamed multipart body into a relay upload: the
// key is resolved as soon as it arrives and the attachment is spooled to
// disk under a size ceiling.
package upload

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"strings"

	"github.com/memohai/teleput/internal/media"
)

var (
	// ErrFieldConsumed is returned when a field body is read a second time.
	ErrFieldConsumed = errors.New("multipart field already consumed")
	// ErrMalformed indicates the request body is not a valid multipart form.
	ErrMalformed = errors.New("malformed multipart body")
)

// Field is one multipart part. Its body can be consumed exactly once and
// becomes unreadable once Reader.Next moves past it.
type Field struct {
	Name        string
	FileName    string
	ContentType string

	part     *multipart.Part
	consumed bool
}

// IsFile reports whether the part was sent as a file.
func (f *Field) IsFile() bool {
	return f.FileName != ""
}

func (f *Field) take() (*multipart.Part, error) {
	if f.consumed {
		return nil, ErrFieldConsumed
	}
	f.consumed = true
	return f.part, nil
}

// Text reads the field as a string of at most maxBytes.
func (f *Field) Text(maxBytes int64) (string, error) {
	part, err := f.take()
	if err != nil {
		return "", err
	}
	data, err := media.ReadAllWithLimit(part, maxBytes)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// SpoolTo streams the field into spool, aborting once maxBytes is exceeded.
func (f *Field) SpoolTo(ctx context.Context, spool *media.Spool, maxBytes int64) (int64, error) {
	part, err := f.take()
	if err != nil {
		return 0, err
	}
	return spool.Fill(ctx, part, maxBytes)
}

// Discard drains and drops the field body.
func (f *Field) Discard() error {
	part, err := f.take()
	if err != nil {
		return err
	}
	_, err = io.Copy(io.Discard, part)
	return err
}

// Reader iterates over multipart fields in arrival order.
type Reader struct {
	mr      *multipart.Reader
	current *Field
}

// NewReader wraps a multipart reader.
func NewReader(mr *multipart.Reader) *Reader {
	return &Reader{mr: mr}
}

// Next returns the next field, or io.EOF when the body is exhausted. The
// previous field is invalidated.
func (r *Reader) Next() (*Field, error) {
	if r.current != nil {
		r.current.consumed = true
		r.current = nil
	}
	part, err := r.mr.NextPart()
	if err != nil {
		return nil, err
	}
	r.current = &Field{
		Name:        part.FormName(),
		FileName:    part.FileName(),
		ContentType: strings.TrimSpace(part.Header.Get("Content-Type")),
		part:        part,
	}
	return r.current, nil
}
