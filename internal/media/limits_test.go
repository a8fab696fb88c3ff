package media

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadAllWithLimit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		payload   []byte
		maxBytes  int64
		wantErr   bool
		errTooBig bool
	}{
		{
			name:     "within limit",
			payload:  []byte("hello"),
			maxBytes: 8,
		},
		{
			name:      "over limit",
			payload:   []byte("0123456789"),
			maxBytes:  5,
			wantErr:   true,
			errTooBig: true,
		},
		{
			name:     "exact limit",
			payload:  []byte("12345"),
			maxBytes: 5,
		},
		{
			name:     "non positive limit",
			payload:  []byte("x"),
			maxBytes: 0,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ReadAllWithLimit(bytes.NewReader(tt.payload), tt.maxBytes)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, tt.errTooBig, errors.Is(err, ErrTooLarge))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, string(tt.payload), string(got))
		})
	}
}

// oneByteReader forces CopyWithLimit through many small chunks.
type oneByteReader struct {
	data []byte
}

func (r *oneByteReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, io.EOF
	}
	p[0] = r.data[0]
	r.data = r.data[1:]
	return 1, nil
}

func TestCopyWithLimit(t *testing.T) {
	t.Parallel()

	const max = 2*ChunkSize + 7

	tests := []struct {
		name    string
		size    int
		wantErr bool
	}{
		{name: "empty", size: 0},
		{name: "exact max", size: max},
		{name: "one over max", size: max + 1, wantErr: true},
		{name: "far over max", size: 5 * ChunkSize, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var dst bytes.Buffer
			n, err := CopyWithLimit(context.Background(), &dst, strings.NewReader(strings.Repeat("a", tt.size)), max)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrTooLarge)
				assert.LessOrEqual(t, n, int64(max))
				assert.LessOrEqual(t, dst.Len(), max)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, int64(tt.size), n)
			assert.Equal(t, tt.size, dst.Len())
		})
	}
}

func TestCopyWithLimitSmallChunks(t *testing.T) {
	t.Parallel()

	var dst bytes.Buffer
	_, err := CopyWithLimit(context.Background(), &dst, &oneByteReader{data: []byte("abcdef")}, 5)
	require.ErrorIs(t, err, ErrTooLarge)
	assert.Equal(t, "abcde", dst.String())
}

func TestCopyWithLimitCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var dst bytes.Buffer
	_, err := CopyWithLimit(ctx, &dst, strings.NewReader("data"), 10)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, dst.Len())
}
