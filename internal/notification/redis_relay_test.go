package notification

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/assetflow/backend/internal/events"
)

func TestForward_FailedPublishLeavesNoEchoMarker(t *testing.T) {
	// Nothing listens on this port, so every publish fails.
	relay := NewRedisRelay("127.0.0.1:1", events.NewBus(), NewHub())
	t.Cleanup(func() { relay.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	seen := make(map[string]struct{})
	for i := 0; i < 3; i++ {
		relay.forward(ctx, events.NewEvent(events.TypeLoanDecided, "l-1", nil), seen)
	}

	assert.Empty(t, seen, "ids with no echo coming back must not accumulate")
}
