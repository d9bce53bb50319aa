package types

import (
	"time"
)

type User struct {
	Id        int       `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	Password  string    `json:"-"`
	AvatarUrl string    `json:"avatarUrl,omitempty"`
	CreatedAt time.Time `json:"created_at,omitzero"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

type Conversation struct {
	Id           int       `json:"id"`
	Name         string    `json:"name,omitempty"`
	Participants []User    `json:"participants"`
	CreatedAt    time.Time `json:"created_at,omitzero"`
	UpdatedAt    time.Time `json:"updated_at,omitzero"`
}

type Message struct {
	Id             int       `json:"id"`
	MessageText    string    `json:"messageText"`
	Type           string    `json:"type,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
	ConversationId int       `json:"conversationId"`
	Sender         User      `json:"sender"`
}
