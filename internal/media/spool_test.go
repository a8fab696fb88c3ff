package media

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpoolRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	spool, err := NewSpool(dir)
	require.NoError(t, err)

	n, err := spool.Fill(context.Background(), strings.NewReader("payload"), 100)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	assert.Equal(t, int64(7), spool.Size())

	head, err := spool.Head(3)
	require.NoError(t, err)
	assert.Equal(t, "pay", string(head))

	reader, err := spool.Rewind()
	require.NoError(t, err)
	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	path := spool.Path()
	require.NoError(t, spool.Close())
	require.NoError(t, spool.Close())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	_, err = spool.Rewind()
	assert.ErrorIs(t, err, ErrSpoolClosed)
}

func TestSpoolFillTooLarge(t *testing.T) {
	t.Parallel()

	spool, err := NewSpool(t.TempDir())
	require.NoError(t, err)
	defer spool.Close()

	_, err = spool.Fill(context.Background(), strings.NewReader("0123456789"), 9)
	require.ErrorIs(t, err, ErrTooLarge)
	assert.LessOrEqual(t, spool.Size(), int64(9))
}

func TestFileName(t *testing.T) {
	t.Parallel()

	png := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0x0D}

	assert.Equal(t, "report.pdf", FileName("report.pdf", nil))
	assert.Equal(t, "evil.txt", FileName("../../etc/evil.txt", nil))
	assert.Equal(t, "x.bin", FileName(`C:\tmp\x.bin`, nil))
	assert.Equal(t, "file.png", FileName("", png))
	assert.Equal(t, "file", FileName("", []byte("plain words")))
	assert.Equal(t, "file", FileName("", nil))
}

func TestSweeperRemovesStaleFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	stale := filepath.Join(dir, "teleput-upload-stale")
	fresh := filepath.Join(dir, "teleput-upload-fresh")
	other := filepath.Join(dir, "unrelated")
	for _, path := range []string{stale, fresh, other} {
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
	}
	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))
	require.NoError(t, os.Chtimes(other, old, old))

	sweeper, err := NewSweeper(nil, dir, "@every 1h", time.Hour)
	require.NoError(t, err)

	removed, err := sweeper.Sweep(time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.NoFileExists(t, stale)
	assert.FileExists(t, fresh)
	assert.FileExists(t, other)
}

func TestSweeperRejectsBadSchedule(t *testing.T) {
	t.Parallel()

	_, err := NewSweeper(nil, t.TempDir(), "not a schedule", time.Hour)
	require.Error(t, err)

	_, err = NewSweeper(nil, t.TempDir(), "@every 1m", 0)
	require.Error(t, err)
}

func TestSweeperStartStop(t *testing.T) {
	t.Parallel()

	sweeper, err := NewSweeper(nil, t.TempDir(), "@every 1h", time.Hour)
	require.NoError(t, err)
	sweeper.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, sweeper.Stop(ctx))
}
