package channelchecker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memohai/teleput/internal/healthcheck"
)

type fakeIntake string

func (f fakeIntake) Mode() string { return string(f) }

func TestListChecks(t *testing.T) {
	t.Parallel()

	canceled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name     string
		ctx      context.Context
		observer IntakeObserver
		status   string
	}{
		{name: "polling", ctx: context.Background(), observer: fakeIntake("polling"), status: healthcheck.StatusOK},
		{name: "stopped", ctx: context.Background(), observer: fakeIntake(""), status: healthcheck.StatusError},
		{name: "no observer", ctx: context.Background(), status: healthcheck.StatusWarn},
		{name: "canceled", ctx: canceled, observer: fakeIntake("webhook"), status: healthcheck.StatusUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			items := NewChecker(nil, "telegram", tt.observer).ListChecks(tt.ctx)
			require.Len(t, items, 1)
			assert.Equal(t, "channel.intake.telegram", items[0].ID)
			assert.Equal(t, tt.status, items[0].Status)
		})
	}
}
