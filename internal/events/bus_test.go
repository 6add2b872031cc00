package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_TypedSubscription(t *testing.T) {
	bus := NewBus()
	ch := bus.Subscribe(TypeLoanDecided)

	bus.Emit(TypeLoanDecided, "loan-1", map[string]any{"approved": true})
	bus.Emit(TypeRentalReturned, "rental-1", nil)

	ev := <-ch
	assert.Equal(t, TypeLoanDecided, ev.Type)
	assert.Equal(t, "loan-1", ev.Subject)
	assert.Equal(t, true, ev.Data["approved"])
	assert.Empty(t, ch, "unrelated event types must not be delivered")
}

func TestBus_WildcardSubscription(t *testing.T) {
	bus := NewBus()
	ch := bus.Subscribe()

	bus.Emit(TypeLoanDecided, "loan-1", nil)
	bus.Emit(TypeSensorAlert, "asset-1", nil)

	assert.Equal(t, TypeLoanDecided, (<-ch).Type)
	assert.Equal(t, TypeSensorAlert, (<-ch).Type)
}

func TestBus_SlowSubscriberDoesNotBlock(t *testing.T) {
	bus := NewBus()
	bus.bufferSize = 1
	ch := bus.Subscribe(TypeSensorAlert)

	// Second publish overflows the buffer and is dropped, not blocked on.
	bus.Emit(TypeSensorAlert, "a", nil)
	bus.Emit(TypeSensorAlert, "b", nil)

	ev := <-ch
	assert.Equal(t, "a", ev.Subject)
	assert.Empty(t, ch)
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus()
	ch := bus.Subscribe(TypeLoanDecided)
	require.Equal(t, 1, bus.SubscriberCount())

	bus.Unsubscribe(ch)
	assert.Equal(t, 0, bus.SubscriberCount())

	_, open := <-ch
	assert.False(t, open, "unsubscribed channel must be closed")

	// Publishing after unsubscribe is a no-op, not a panic.
	bus.Emit(TypeLoanDecided, "loan-1", nil)
}

func TestEvent_JSONRoundtripFields(t *testing.T) {
	ev := NewEvent(TypeBillingInvoiced, "period-1", map[string]any{"total": "100"})
	raw, err := ev.JSON()
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"type":"billing.invoiced"`)
	assert.Contains(t, string(raw), `"subject":"period-1"`)
	assert.NotEmpty(t, ev.ID)
}
