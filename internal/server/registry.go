package server

import (
	"fmt"
	"log"
	"sync"

	"github.com/chatterbox-im/chatterbox/internal/stats"
	"github.com/chatterbox-im/chatterbox/internal/types"
)

const sendBufferSize = 256

// Session maps one live connection to exactly one authenticated user.
// A user may hold several concurrent sessions (multi-device).
type Session struct {
	Id   string
	User types.User
	send chan *ServerEvent
}

func NewSession(id string, user types.User) *Session {
	return &Session{
		Id:   id,
		User: user,
		send: make(chan *ServerEvent, sendBufferSize),
	}
}

// queueEvent is best-effort: if the session's send buffer is full the
// event is dropped rather than blocking the caller.
func (s *Session) queueEvent(ev *ServerEvent) bool {
	select {
	case s.send <- ev:
	default:
		return false
	}

	return true
}

// SessionRegistry tracks live sessions and the subscriber set per
// conversation. It is process-wide state: empty at startup, entries
// removed per connection on disconnect. Subscriptions are transient
// transport state, rebuilt on every connect; they are distinct from
// the durable membership relation, which is checked before any
// subscription is established.
type SessionRegistry struct {
	log   *log.Logger
	stats stats.StatsProvider

	mu       sync.RWMutex
	sessions map[string]*Session
	// conversation id -> connection id -> session
	rooms map[int]map[string]*Session
}

func NewSessionRegistry(logger *log.Logger, st stats.StatsProvider) *SessionRegistry {
	st.RegisterMetric("NumActiveSessions")
	st.RegisterMetric("NumSubscriptions")

	return &SessionRegistry{
		log:      logger,
		stats:    st,
		sessions: make(map[string]*Session),
		rooms:    make(map[int]map[string]*Session),
	}
}

// Register creates a session for a connection. A duplicate connection
// id is an internal invariant violation and is rejected.
func (r *SessionRegistry) Register(connectionId string, user types.User) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[connectionId]; ok {
		return nil, fmt.Errorf("connection %q already registered", connectionId)
	}

	s := NewSession(connectionId, user)
	r.sessions[connectionId] = s
	r.stats.Incr("NumActiveSessions")
	r.log.Printf("registered session %q for %q", connectionId, user.Username)

	return s, nil
}

// Unregister removes a session and all its subscriptions. Idempotent.
func (r *SessionRegistry) Unregister(connectionId string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[connectionId]; !ok {
		return
	}

	delete(r.sessions, connectionId)
	for conversationId, subs := range r.rooms {
		if _, ok := subs[connectionId]; ok {
			delete(subs, connectionId)
			r.stats.Decr("NumSubscriptions")
		}
		if len(subs) == 0 {
			delete(r.rooms, conversationId)
		}
	}

	r.stats.Decr("NumActiveSessions")
	r.log.Printf("unregistered session %q", connectionId)
}

func (r *SessionRegistry) Subscribe(connectionId string, conversationId int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[connectionId]
	if !ok {
		return fmt.Errorf("no session for connection %q", connectionId)
	}

	subs := r.rooms[conversationId]
	if subs == nil {
		subs = make(map[string]*Session)
		r.rooms[conversationId] = subs
	}

	if _, ok := subs[connectionId]; !ok {
		subs[connectionId] = s
		r.stats.Incr("NumSubscriptions")
	}

	return nil
}

// Unsubscribe is idempotent: removing a subscription that does not
// exist is not an error.
func (r *SessionRegistry) Unsubscribe(connectionId string, conversationId int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	subs, ok := r.rooms[conversationId]
	if !ok {
		return
	}

	if _, ok := subs[connectionId]; ok {
		delete(subs, connectionId)
		r.stats.Decr("NumSubscriptions")
	}

	if len(subs) == 0 {
		delete(r.rooms, conversationId)
	}
}

// Broadcast delivers an event to every currently-subscribed session of
// a conversation. Best-effort: no delivery confirmation, no queuing
// for absent subscribers.
func (r *SessionRegistry) Broadcast(conversationId int, ev *ServerEvent) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, s := range r.rooms[conversationId] {
		if s == ev.skipSession {
			continue
		}

		if !s.queueEvent(ev) {
			r.log.Printf("dropping event for session %q, send buffer full", s.Id)
		}
	}
}

// Unicast delivers an event to exactly one connection. Delivery to an
// unregistered connection is a no-op.
func (r *SessionRegistry) Unicast(connectionId string, ev *ServerEvent) bool {
	r.mu.RLock()
	s, ok := r.sessions[connectionId]
	r.mu.RUnlock()

	if !ok {
		return false
	}

	if !s.queueEvent(ev) {
		r.log.Printf("dropping event for session %q, send buffer full", s.Id)
		return false
	}

	return true
}

// Subscribed reports whether a connection currently holds a
// subscription to a conversation.
func (r *SessionRegistry) Subscribed(connectionId string, conversationId int) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.rooms[conversationId][connectionId]
	return ok
}
