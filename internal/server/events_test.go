package server

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/chatterbox-im/chatterbox/internal/types"
)

func TestClientEvent_Decode(t *testing.T) {
	raw := `{"send_message":{"conversationId":10,"messageText":"hi","type":"image"}}`

	var ev ClientEvent
	assert.NoError(t, json.Unmarshal([]byte(raw), &ev))
	assert.NotNil(t, ev.SendMessage, "expected the send_message field set")
	assert.Equal(t, 10, ev.SendMessage.ConversationId)
	assert.Equal(t, "hi", ev.SendMessage.MessageText)
	assert.Equal(t, "image", ev.SendMessage.Type)

	assert.Nil(t, ev.CreateConversation)
	assert.Nil(t, ev.JoinConversation)
	assert.Nil(t, ev.GetMessages)
}

func TestClientEvent_DecodeUnknown(t *testing.T) {
	var ev ClientEvent
	assert.NoError(t, json.Unmarshal([]byte(`{"frobnicate":{"x":1}}`), &ev))
	assert.Equal(t, ClientEvent{}, ev, "expected unrecognized events to decode to an empty envelope")
}

func TestServerEvent_EncodeReceiveMessage(t *testing.T) {
	ts := time.Date(2026, time.March, 1, 12, 30, 0, 0, time.UTC)
	ev := &ServerEvent{
		ReceiveMessage: &types.Message{
			Id:             100,
			MessageText:    "hi",
			Type:           "text",
			Timestamp:      ts,
			ConversationId: 10,
			Sender:         types.User{Id: 1, Username: "alice", AvatarUrl: "https://cdn.example.com/a.png"},
		},
	}

	bytes, err := serializeEvent(ev)
	assert.NoError(t, err)

	want := `{"receive_message":{"id":100,"messageText":"hi","type":"text",` +
		`"timestamp":"2026-03-01T12:30:00Z","conversationId":10,` +
		`"sender":{"id":1,"username":"alice","avatarUrl":"https://cdn.example.com/a.png"}}}`
	assert.JSONEq(t, want, string(bytes))
}

func TestServerEvent_EncodeOmitsUnsetFields(t *testing.T) {
	bytes, err := serializeEvent(ErrAccessDenied())
	assert.NoError(t, err)
	assert.JSONEq(t, `{"error":{"message":"access denied to this conversation"}}`, string(bytes))
}

func TestServerEvent_SkipSessionNotSerialized(t *testing.T) {
	ev := &ServerEvent{
		UserTyping:  &TypingNotice{Username: "alice"},
		skipSession: NewSession("conn-1", types.User{Id: 1}),
	}

	bytes, err := serializeEvent(ev)
	assert.NoError(t, err)
	assert.JSONEq(t, `{"user_typing":{"username":"alice"}}`, string(bytes))
}
