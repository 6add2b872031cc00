package notification

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_BroadcastReachesAllSessions(t *testing.T) {
	hub := NewHub()
	a := hub.register("user-a")
	b := hub.register("")
	require.Equal(t, 2, hub.SessionCount())

	hub.Broadcast([]byte("hello"))

	assert.Equal(t, []byte("hello"), <-a.send)
	assert.Equal(t, []byte("hello"), <-b.send)
}

func TestHub_SendToUserTargetsOnlyThatUser(t *testing.T) {
	hub := NewHub()
	a := hub.register("user-a")
	b := hub.register("user-b")

	hub.SendToUser("user-a", []byte("private"))

	assert.Equal(t, []byte("private"), <-a.send)
	assert.Empty(t, b.send)
}

func TestHub_SendToUserFansOutToAllTheirSessions(t *testing.T) {
	hub := NewHub()
	first := hub.register("user-a")
	second := hub.register("user-a")

	hub.SendToUser("user-a", []byte("x"))

	assert.Equal(t, []byte("x"), <-first.send)
	assert.Equal(t, []byte("x"), <-second.send)
}

func TestHub_AnonymousSessionsGetNoUserSends(t *testing.T) {
	hub := NewHub()
	anon := hub.register("")

	hub.SendToUser("", []byte("nothing"))

	assert.Empty(t, anon.send)
}

func TestHub_UnregisterClosesAndForgets(t *testing.T) {
	hub := NewHub()
	s := hub.register("user-a")
	hub.unregister(s)

	assert.Equal(t, 0, hub.SessionCount())
	_, open := <-s.send
	assert.False(t, open)

	// Double unregister is safe.
	hub.unregister(s)
}

func TestHub_SlowSessionIsDroppedOnBroadcast(t *testing.T) {
	hub := NewHub()
	s := hub.register("user-a")

	// Fill the send buffer so the next broadcast cannot be delivered.
	for i := 0; i < sendBuffer; i++ {
		s.send <- []byte("fill")
	}
	hub.Broadcast([]byte("overflow"))

	assert.Equal(t, 0, hub.SessionCount(), "session with full buffer must be dropped")
}
