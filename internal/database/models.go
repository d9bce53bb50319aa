package database

import (
	"database/sql"
	"time"
)

type User struct {
	Id           int
	Username     string
	Email        string
	PasswordHash string
	AvatarUrl    sql.NullString
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Conversation struct {
	Id        int
	Name      sql.NullString
	CreatedAt time.Time
	UpdatedAt time.Time
	Members   []User
}

// Membership joins exactly one user to exactly one conversation. The
// (UserId, ConversationId) pair is unique.
type Membership struct {
	Id             int
	UserId         int
	ConversationId int
	CreatedAt      time.Time
}

type Message struct {
	Id             int
	ConversationId int
	SenderId       int
	Content        string
	Type           string
	CreatedAt      time.Time
	// Sender summary, populated by GetMessages.
	SenderUsername  string
	SenderAvatarUrl sql.NullString
}

type CreateAccountParams struct {
	Username     string
	Email        string
	PasswordHash string
	AvatarUrl    string
}

type CreateMessageParams struct {
	ConversationId int
	SenderId       int
	Content        string
	Type           string
}
