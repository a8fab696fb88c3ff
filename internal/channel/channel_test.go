package channel

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsDeliveryError(t *testing.T) {
	t.Parallel()

	assert.Nil(t, AsDeliveryError(nil))

	plain := errors.New("boom")
	got := AsDeliveryError(plain)
	require.NotNil(t, got)
	assert.Equal(t, ReasonUnavailable, got.Reason)
	assert.ErrorIs(t, got, plain)

	limited := &DeliveryError{Reason: ReasonRateLimited, RetryAfter: 3 * time.Second, Err: plain}
	got = AsDeliveryError(errors.Join(errors.New("outer"), limited))
	assert.Same(t, limited, got)
	assert.Contains(t, got.Error(), "rate_limited")
}

func TestBaseConnectionStopsOnce(t *testing.T) {
	t.Parallel()

	calls := 0
	conn := NewConnection("polling", func(context.Context) error {
		calls++
		return nil
	})
	assert.Equal(t, "polling", conn.Mode())
	assert.True(t, conn.Running())
	require.NoError(t, conn.Stop(context.Background()))
	require.NoError(t, conn.Stop(context.Background()))
	assert.False(t, conn.Running())
	assert.Equal(t, 1, calls)

	assert.ErrorIs(t, NewConnection("webhook", nil).Stop(context.Background()), ErrStopNotSupported)
}
