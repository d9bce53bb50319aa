package server

import (
	"github.com/chatterbox-im/chatterbox/internal/database"
)

// ConversationAuthorizer decides membership. Authorization is looked up
// fresh on every room-scoped event rather than cached in the session,
// since membership can change out-of-band while a connection is live.
type ConversationAuthorizer struct {
	db database.ChatRepository
}

func NewConversationAuthorizer(db database.ChatRepository) *ConversationAuthorizer {
	return &ConversationAuthorizer{db: db}
}

// IsMember reports whether the user holds a membership in the
// conversation. A nonexistent conversation yields the same answer as a
// conversation the user is not a member of.
func (a *ConversationAuthorizer) IsMember(userId, conversationId int) bool {
	return a.db.MembershipExists(userId, conversationId)
}
