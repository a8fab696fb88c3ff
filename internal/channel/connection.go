package channel

import (
	"context"
	"errors"
	"sync/atomic"
)

// ErrStopNotSupported is returned when a connection does not support graceful shutdown.
var ErrStopNotSupported = errors.New("channel connection stop not supported")

// Connection represents an active update intake from a platform.
type Connection interface {
	Mode() string
	Stop(ctx context.Context) error
	Running() bool
}

// BaseConnection is a default Connection implementation backed by a stop function.
type BaseConnection struct {
	mode    string
	stop    func(ctx context.Context) error
	running atomic.Bool
}

// NewConnection creates a running BaseConnection for the given intake mode.
func NewConnection(mode string, stop func(ctx context.Context) error) *BaseConnection {
	conn := &BaseConnection{
		mode: mode,
		stop: stop,
	}
	conn.running.Store(true)
	return conn
}

// Mode returns how updates are received, for example "polling" or "webhook".
func (c *BaseConnection) Mode() string {
	return c.mode
}

// Stop shuts down the connection once; later calls are no-ops.
func (c *BaseConnection) Stop(ctx context.Context) error {
	if c.stop == nil {
		return ErrStopNotSupported
	}
	if !c.running.CompareAndSwap(true, false) {
		return nil
	}
	return c.stop(ctx)
}

// Running reports whether the connection is still active.
func (c *BaseConnection) Running() bool {
	return c.running.Load()
}
