package database

type ChatRepository interface {
	Ping() error
	CreateAccount(params CreateAccountParams) (User, error)
	GetAccountById(accountId int) (User, error)
	GetAccountByEmail(email string) (User, error)
	// CreateConversation persists a conversation and one membership per
	// member id as a single transaction. If any membership insert fails
	// the whole creation fails and nothing is persisted.
	CreateConversation(name string, memberIds []int) (*Conversation, error)
	MembershipExists(accountId, conversationId int) bool
	ListConversationsForUser(accountId int) ([]Conversation, error)
	// CreateMessage persists a message with a server-assigned id and
	// timestamp and returns the stored row.
	CreateMessage(params CreateMessageParams) (Message, error)
	// GetMessages returns the full message history for a conversation
	// ordered by creation time, insertion order breaking ties, with
	// sender summaries attached.
	GetMessages(conversationId int) ([]Message, error)
}
