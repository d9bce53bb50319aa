package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/chatterbox-im/chatterbox/internal/stats"
	"github.com/chatterbox-im/chatterbox/internal/testutil"
	"github.com/chatterbox-im/chatterbox/internal/types"
)

func newTestRegistry(t *testing.T) *SessionRegistry {
	su := &stats.MockStatsUpdater{}
	su.On("RegisterMetric", mock.Anything).Twice()
	su.On("Incr", mock.Anything).Maybe()
	su.On("Decr", mock.Anything).Maybe()

	return NewSessionRegistry(testutil.TestLogger(t), su)
}

func TestRegister(t *testing.T) {
	r := newTestRegistry(t)
	user := types.User{Id: 1, Username: "alice"}

	s, err := r.Register("conn-1", user)
	assert.NoError(t, err, "expected no error registering a new connection")
	assert.NotNil(t, s, "expected a session")
	assert.Equal(t, "conn-1", s.Id, "expected session id to match connection id")
	assert.Equal(t, user, s.User, "expected session user to match identity")

	_, err = r.Register("conn-1", user)
	assert.Error(t, err, "expected duplicate connection id to be rejected")
}

func TestUnregister(t *testing.T) {
	r := newTestRegistry(t)
	user := types.User{Id: 1, Username: "alice"}

	s, err := r.Register("conn-1", user)
	assert.NoError(t, err)
	assert.NoError(t, r.Subscribe(s.Id, 10))

	r.Unregister(s.Id)
	assert.False(t, r.Subscribed(s.Id, 10), "expected subscriptions to be removed on unregister")

	// broadcast must no longer attempt delivery to the removed session
	r.Broadcast(10, &ServerEvent{UserTyping: &TypingNotice{Username: "bob"}})
	assert.Len(t, s.send, 0, "expected no delivery to an unregistered session")

	// idempotent
	r.Unregister(s.Id)

	// a new connection for the same identity registers cleanly
	_, err = r.Register("conn-2", user)
	assert.NoError(t, err, "expected a fresh connection for the same user to register")
}

func TestSubscribe(t *testing.T) {
	r := newTestRegistry(t)

	err := r.Subscribe("unknown", 10)
	assert.Error(t, err, "expected subscribing an unknown connection to fail")

	s, err := r.Register("conn-1", types.User{Id: 1, Username: "alice"})
	assert.NoError(t, err)

	assert.NoError(t, r.Subscribe(s.Id, 10))
	assert.True(t, r.Subscribed(s.Id, 10), "expected subscription to exist")

	// subscribing twice is not an error
	assert.NoError(t, r.Subscribe(s.Id, 10))
}

func TestUnsubscribe(t *testing.T) {
	r := newTestRegistry(t)

	s, err := r.Register("conn-1", types.User{Id: 1, Username: "alice"})
	assert.NoError(t, err)
	assert.NoError(t, r.Subscribe(s.Id, 10))

	r.Unsubscribe(s.Id, 10)
	assert.False(t, r.Subscribed(s.Id, 10), "expected subscription to be removed")

	// repeated unsubscribes succeed silently
	r.Unsubscribe(s.Id, 10)
	r.Unsubscribe("unknown", 10)
}

func TestBroadcast(t *testing.T) {
	r := newTestRegistry(t)

	alice, err := r.Register("conn-1", types.User{Id: 1, Username: "alice"})
	assert.NoError(t, err)
	bob, err := r.Register("conn-2", types.User{Id: 2, Username: "bob"})
	assert.NoError(t, err)
	carol, err := r.Register("conn-3", types.User{Id: 3, Username: "carol"})
	assert.NoError(t, err)

	assert.NoError(t, r.Subscribe(alice.Id, 10))
	assert.NoError(t, r.Subscribe(bob.Id, 10))
	// carol is registered but not subscribed

	ev := &ServerEvent{UserTyping: &TypingNotice{Username: "alice"}}
	r.Broadcast(10, ev)

	assert.Len(t, alice.send, 1, "expected delivery to a subscriber")
	assert.Len(t, bob.send, 1, "expected delivery to a subscriber")
	assert.Len(t, carol.send, 0, "expected no delivery to a non-subscriber")
}

func TestBroadcast_SkipSession(t *testing.T) {
	r := newTestRegistry(t)

	alice, err := r.Register("conn-1", types.User{Id: 1, Username: "alice"})
	assert.NoError(t, err)
	bob, err := r.Register("conn-2", types.User{Id: 2, Username: "bob"})
	assert.NoError(t, err)

	assert.NoError(t, r.Subscribe(alice.Id, 10))
	assert.NoError(t, r.Subscribe(bob.Id, 10))

	ev := &ServerEvent{UserTyping: &TypingNotice{Username: "alice"}, skipSession: alice}
	r.Broadcast(10, ev)

	assert.Len(t, alice.send, 0, "expected the skipped session to receive nothing")
	assert.Len(t, bob.send, 1, "expected the other subscriber to receive the event")
}

func TestUnicast(t *testing.T) {
	r := newTestRegistry(t)

	s, err := r.Register("conn-1", types.User{Id: 1, Username: "alice"})
	assert.NoError(t, err)

	ok := r.Unicast(s.Id, ErrAccessDenied())
	assert.True(t, ok, "expected unicast to a live session to succeed")
	assert.Len(t, s.send, 1, "expected the event to be queued")

	ok = r.Unicast("unknown", ErrAccessDenied())
	assert.False(t, ok, "expected unicast to an unknown connection to be a no-op")
}

func Test_queueEvent(t *testing.T) {
	t.Run("successful queue", func(t *testing.T) {
		s := NewSession("conn-1", types.User{Id: 1})

		res := s.queueEvent(&ServerEvent{})
		assert.True(t, res, "expected queueEvent to return true when channel is not full")

		select {
		case ev := <-s.send:
			assert.NotNil(t, ev, "expected an event to be queued")
		default:
			t.Error("expected an event to be queued, but none was")
		}
	})
	t.Run("channel full", func(t *testing.T) {
		s := &Session{
			Id:   "conn-1",
			send: make(chan *ServerEvent, 1),
		}

		s.send <- &ServerEvent{} // pre-fill the send channel to simulate a full channel
		res := s.queueEvent(&ServerEvent{})
		assert.False(t, res, "expected queueEvent to return false when channel is full")
	})
}
