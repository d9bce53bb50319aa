package server

import (
	"log"

	"github.com/go-playground/validator/v10"

	"github.com/chatterbox-im/chatterbox/internal/database"
	"github.com/chatterbox-im/chatterbox/internal/stats"
	"github.com/chatterbox-im/chatterbox/internal/types"
)

const defaultMessageType = "text"

// Engine is the per-connection event state machine. Dispatch is called
// from a connection's read pump, so handlers for a single connection
// run one at a time in arrival order; handlers for different
// connections run concurrently and share only the registry and the
// repository. Handlers never hold the registry lock across a
// persistence call: authorization check, persistence, then registry
// mutation happen as separate steps.
type Engine struct {
	log      *log.Logger
	db       database.ChatRepository
	registry *SessionRegistry
	authz    *ConversationAuthorizer
	validate *validator.Validate
	stats    stats.StatsProvider
}

func NewEngine(logger *log.Logger, db database.ChatRepository, registry *SessionRegistry, st stats.StatsProvider) *Engine {
	st.RegisterMetric("NumMessagesSent")
	st.RegisterMetric("NumConversationsCreated")

	return &Engine{
		log:      logger,
		db:       db,
		registry: registry,
		authz:    NewConversationAuthorizer(db),
		validate: validator.New(),
		stats:    st,
	}
}

// Dispatch routes one inbound event to its handler. Failures are
// reported as a typed error event to the originating session only and
// never terminate the connection. Unknown events are ignored.
func (e *Engine) Dispatch(s *Session, ev *ClientEvent) {
	switch {
	case ev.CreateConversation != nil:
		e.handleCreateConversation(s, ev.CreateConversation)
	case ev.ListConversations != nil:
		e.handleListConversations(s)
	case ev.JoinConversation != nil:
		e.handleJoinConversation(s, ev.JoinConversation)
	case ev.LeaveConversation != nil:
		e.handleLeaveConversation(s, ev.LeaveConversation)
	case ev.SendMessage != nil:
		e.handleSendMessage(s, ev.SendMessage)
	case ev.Typing != nil:
		e.handleTyping(s, ev.Typing.ConversationId, false)
	case ev.StopTyping != nil:
		e.handleTyping(s, ev.StopTyping.ConversationId, true)
	case ev.GetMessages != nil:
		e.handleGetMessages(s, ev.GetMessages)
	default:
		e.log.Printf("session %q: ignoring unknown event", s.Id)
	}
}

// Disconnect releases the session and all its subscriptions. It must
// run even on abrupt transport termination.
func (e *Engine) Disconnect(s *Session) {
	e.registry.Unregister(s.Id)
}

func (e *Engine) reply(s *Session, ev *ServerEvent) {
	// Unicast through the registry so a reply to a connection that
	// disconnected mid-handler is a no-op.
	e.registry.Unicast(s.Id, ev)
}

func (e *Engine) handleCreateConversation(s *Session, p *CreateConversation) {
	if err := e.validate.Struct(p); err != nil {
		e.reply(s, ErrInvalidCreateConversation())
		return
	}

	participantIds := normalizeParticipants(p.ParticipantIds, s.User.Id)

	conv, err := e.db.CreateConversation(p.ConversationName, participantIds)
	if err != nil {
		e.log.Printf("session %q: create conversation: %v", s.Id, err)
		e.reply(s, ErrCreateConversationFailed())
		return
	}

	if err := e.registry.Subscribe(s.Id, conv.Id); err != nil {
		// The creator disconnected after persistence; the conversation
		// stays, there is just no one left to notify.
		e.log.Printf("session %q: subscribe to new conversation: %v", s.Id, err)
		return
	}

	e.stats.Incr("NumConversationsCreated")
	e.reply(s, &ServerEvent{
		ConversationCreated: &ConversationCreated{
			Conversation: conversationFromDb(*conv),
		},
	})
}

func (e *Engine) handleListConversations(s *Session) {
	dbConvs, err := e.db.ListConversationsForUser(s.User.Id)
	if err != nil {
		e.log.Printf("session %q: list conversations: %v", s.Id, err)
		e.reply(s, ErrListConversationsFailed())
		return
	}

	conversations := make([]types.Conversation, len(dbConvs))
	for i, conv := range dbConvs {
		conversations[i] = conversationFromDb(conv)
	}

	e.reply(s, &ServerEvent{
		UserConversations: &UserConversations{Conversations: conversations},
	})
}

func (e *Engine) handleJoinConversation(s *Session, p *JoinConversation) {
	if err := e.validate.Struct(p); err != nil {
		e.reply(s, ErrInvalidEvent())
		return
	}

	if !e.authz.IsMember(s.User.Id, p.ConversationId) {
		e.reply(s, ErrAccessDenied())
		return
	}

	if err := e.registry.Subscribe(s.Id, p.ConversationId); err != nil {
		e.log.Printf("session %q: join conversation %d: %v", s.Id, p.ConversationId, err)
		e.reply(s, ErrJoinFailed())
	}
}

// handleLeaveConversation removes the subscription only; membership is
// untouched. Leaving a conversation the session is not subscribed to
// succeeds silently.
func (e *Engine) handleLeaveConversation(s *Session, p *LeaveConversation) {
	if err := e.validate.Struct(p); err != nil {
		return
	}

	e.registry.Unsubscribe(s.Id, p.ConversationId)
}

func (e *Engine) handleSendMessage(s *Session, p *SendMessage) {
	if err := e.validate.Struct(p); err != nil {
		e.reply(s, ErrInvalidSendMessage())
		return
	}

	if !e.authz.IsMember(s.User.Id, p.ConversationId) {
		e.reply(s, ErrAccessDenied())
		return
	}

	msgType := p.Type
	if msgType == "" {
		msgType = defaultMessageType
	}

	msg, err := e.db.CreateMessage(database.CreateMessageParams{
		ConversationId: p.ConversationId,
		SenderId:       s.User.Id,
		Content:        p.MessageText,
		Type:           msgType,
	})
	if err != nil {
		e.log.Printf("session %q: create message: %v", s.Id, err)
		e.reply(s, ErrSendMessageFailed())
		return
	}

	e.stats.Incr("NumMessagesSent")

	// The sender receives the broadcast like any other subscriber.
	e.registry.Broadcast(p.ConversationId, &ServerEvent{
		ReceiveMessage: &types.Message{
			Id:             msg.Id,
			MessageText:    msg.Content,
			Type:           msg.Type,
			Timestamp:      msg.CreatedAt,
			ConversationId: msg.ConversationId,
			Sender:         sessionUserSummary(s.User),
		},
	})
}

// handleTyping broadcasts an ephemeral signal to every other subscriber
// of the conversation. It is never persisted and delivery failures are
// dropped, not reported.
func (e *Engine) handleTyping(s *Session, conversationId int, stop bool) {
	if conversationId <= 0 {
		return
	}

	if !e.authz.IsMember(s.User.Id, conversationId) {
		e.log.Printf("session %q: typing in conversation %d denied", s.Id, conversationId)
		return
	}

	notice := &TypingNotice{Username: s.User.Username}
	ev := &ServerEvent{skipSession: s}
	if stop {
		ev.UserStopTyping = notice
	} else {
		ev.UserTyping = notice
	}

	e.registry.Broadcast(conversationId, ev)
}

func (e *Engine) handleGetMessages(s *Session, p *GetMessages) {
	if err := e.validate.Struct(p); err != nil {
		e.reply(s, ErrInvalidEvent())
		return
	}

	if !e.authz.IsMember(s.User.Id, p.ConversationId) {
		e.reply(s, ErrAccessDenied())
		return
	}

	dbMsgs, err := e.db.GetMessages(p.ConversationId)
	if err != nil {
		e.log.Printf("session %q: get messages for conversation %d: %v", s.Id, p.ConversationId, err)
		e.reply(s, ErrGetMessagesFailed())
		return
	}

	messages := make([]types.Message, len(dbMsgs))
	for i, msg := range dbMsgs {
		messages[i] = messageFromDb(msg)
	}

	e.reply(s, &ServerEvent{
		ConversationMessages: &ConversationMessages{
			ConversationId: p.ConversationId,
			Messages:       messages,
		},
	})
}

// normalizeParticipants dedupes the requested participant set and
// guarantees the creator is part of it.
func normalizeParticipants(participantIds []int, creatorId int) []int {
	out := make([]int, 0, len(participantIds)+1)
	seen := make(map[int]struct{}, len(participantIds)+1)

	for _, id := range append([]int{creatorId}, participantIds...) {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}

	return out
}

func conversationFromDb(conv database.Conversation) types.Conversation {
	participants := make([]types.User, len(conv.Members))
	for i, m := range conv.Members {
		participants[i] = types.User{
			Id:        m.Id,
			Username:  m.Username,
			AvatarUrl: m.AvatarUrl.String,
		}
	}

	return types.Conversation{
		Id:           conv.Id,
		Name:         conv.Name.String,
		Participants: participants,
		CreatedAt:    conv.CreatedAt,
		UpdatedAt:    conv.UpdatedAt,
	}
}

func messageFromDb(msg database.Message) types.Message {
	return types.Message{
		Id:             msg.Id,
		MessageText:    msg.Content,
		Type:           msg.Type,
		Timestamp:      msg.CreatedAt,
		ConversationId: msg.ConversationId,
		Sender: types.User{
			Id:        msg.SenderId,
			Username:  msg.SenderUsername,
			AvatarUrl: msg.SenderAvatarUrl.String,
		},
	}
}

// sessionUserSummary trims an authenticated session user down to the
// public sender summary attached to broadcasts.
func sessionUserSummary(u types.User) types.User {
	return types.User{
		Id:        u.Id,
		Username:  u.Username,
		AvatarUrl: u.AvatarUrl,
	}
}
