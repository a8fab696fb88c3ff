package media

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
)

// SpoolPattern names spool files so the sweeper can find leftovers.
const SpoolPattern = "teleput-upload-*"

// Spool is a temporary file holding one streamed attachment. It is deleted
// on Close.
type Spool struct {
	mu     sync.Mutex
	file   *os.File
	size   int64
	closed bool
}

// NewSpool creates an empty spool file in dir (os.TempDir when empty).
func NewSpool(dir string) (*Spool, error) {
	file, err := os.CreateTemp(dir, SpoolPattern)
	if err != nil {
		return nil, fmt.Errorf("create spool: %w", err)
	}
	return &Spool{file: file}, nil
}

// Fill streams src into the spool, enforcing maxBytes while copying.
func (s *Spool) Fill(ctx context.Context, src io.Reader, maxBytes int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrSpoolClosed
	}
	n, err := CopyWithLimit(ctx, s.file, src, maxBytes)
	s.size += n
	return n, err
}

// Head returns up to n bytes from the start of the spool without moving the read offset.
func (s *Spool) Head(n int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSpoolClosed
	}
	buf := make([]byte, n)
	read, err := s.file.ReadAt(buf, 0)
	if err != nil && err != io.EOF {
		return nil, err
	}
	return buf[:read], nil
}

// Rewind seeks to the start and returns the spool as a reader.
func (s *Spool) Rewind() (io.Reader, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSpoolClosed
	}
	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind spool: %w", err)
	}
	return s.file, nil
}

// Size returns the number of bytes written.
func (s *Spool) Size() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

// Path returns the location of the spool file.
func (s *Spool) Path() string {
	return s.file.Name()
}

// Close closes and removes the spool file. It is safe to call more than once.
func (s *Spool) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	closeErr := s.file.Close()
	if err := os.Remove(s.file.Name()); err != nil && !os.IsNotExist(err) {
		return err
	}
	return closeErr
}
