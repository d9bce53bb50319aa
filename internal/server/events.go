package server

import (
	"github.com/chatterbox-im/chatterbox/internal/types"
)

// ClientEvent is the inbound wire envelope. Exactly one event field is
// expected to be set; an envelope with no recognized event is ignored.
type ClientEvent struct {
	CreateConversation *CreateConversation `json:"create_conversation,omitempty"`
	ListConversations  *ListConversations  `json:"get_user_conversations,omitempty"`
	JoinConversation   *JoinConversation   `json:"join_conversation,omitempty"`
	LeaveConversation  *LeaveConversation  `json:"leave_conversation,omitempty"`
	SendMessage        *SendMessage        `json:"send_message,omitempty"`
	Typing             *Typing             `json:"typing,omitempty"`
	StopTyping         *StopTyping         `json:"stop_typing,omitempty"`
	GetMessages        *GetMessages        `json:"get_messages,omitempty"`
}

type CreateConversation struct {
	ParticipantIds   []int  `json:"participantIds" validate:"required,min=1,dive,gt=0"`
	ConversationName string `json:"conversationName,omitempty"`
}

type ListConversations struct{}

type JoinConversation struct {
	ConversationId int `json:"conversationId" validate:"required,gt=0"`
}

type LeaveConversation struct {
	ConversationId int `json:"conversationId" validate:"required,gt=0"`
}

type SendMessage struct {
	ConversationId int    `json:"conversationId" validate:"required,gt=0"`
	MessageText    string `json:"messageText" validate:"required"`
	Type           string `json:"type,omitempty" validate:"omitempty,oneof=text image"`
}

type Typing struct {
	ConversationId int `json:"conversationId" validate:"required,gt=0"`
}

type StopTyping struct {
	ConversationId int `json:"conversationId" validate:"required,gt=0"`
}

type GetMessages struct {
	ConversationId int `json:"conversationId" validate:"required,gt=0"`
}

// ServerEvent is the outbound wire envelope. Exactly one event field is
// set per delivery.
type ServerEvent struct {
	ConversationCreated     *ConversationCreated  `json:"conversation_create_success,omitempty"`
	ConversationCreateError *EventError           `json:"conversation_create_error,omitempty"`
	UserConversations       *UserConversations    `json:"user_conversations,omitempty"`
	Error                   *ErrorNotice          `json:"error,omitempty"`
	ReceiveMessage          *types.Message        `json:"receive_message,omitempty"`
	MessageError            *EventError           `json:"message_error,omitempty"`
	UserTyping              *TypingNotice         `json:"user_typing,omitempty"`
	UserStopTyping          *TypingNotice         `json:"user_stop_typing,omitempty"`
	ConversationMessages    *ConversationMessages `json:"conversation_messages,omitempty"`

	// skipSession is excluded from broadcast delivery (typing events
	// are never echoed to their sender).
	skipSession *Session `json:"-"`
}

type ConversationCreated struct {
	Conversation types.Conversation `json:"conversation"`
}

type UserConversations struct {
	Conversations []types.Conversation `json:"conversations"`
}

type ConversationMessages struct {
	ConversationId int             `json:"conversationId"`
	Messages       []types.Message `json:"messages"`
}

type TypingNotice struct {
	Username string `json:"username"`
}

type EventError struct {
	Error string `json:"error"`
}

type ErrorNotice struct {
	Message string `json:"message"`
}

func ErrAccessDenied() *ServerEvent {
	return &ServerEvent{Error: &ErrorNotice{Message: "access denied to this conversation"}}
}

func ErrInvalidEvent() *ServerEvent {
	return &ServerEvent{Error: &ErrorNotice{Message: "invalid event payload"}}
}

func ErrListConversationsFailed() *ServerEvent {
	return &ServerEvent{Error: &ErrorNotice{Message: "failed to get conversations"}}
}

func ErrJoinFailed() *ServerEvent {
	return &ServerEvent{Error: &ErrorNotice{Message: "failed to join conversation"}}
}

func ErrCreateConversationFailed() *ServerEvent {
	return &ServerEvent{ConversationCreateError: &EventError{Error: "failed to create conversation"}}
}

func ErrInvalidCreateConversation() *ServerEvent {
	return &ServerEvent{ConversationCreateError: &EventError{Error: "invalid create_conversation payload"}}
}

func ErrSendMessageFailed() *ServerEvent {
	return &ServerEvent{MessageError: &EventError{Error: "failed to send message"}}
}

func ErrInvalidSendMessage() *ServerEvent {
	return &ServerEvent{MessageError: &EventError{Error: "invalid send_message payload"}}
}

func ErrGetMessagesFailed() *ServerEvent {
	return &ServerEvent{MessageError: &EventError{Error: "failed to get messages"}}
}
