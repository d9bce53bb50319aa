package api

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/chatterbox-im/chatterbox/internal/auth"
	"github.com/chatterbox-im/chatterbox/internal/config"
	"github.com/chatterbox-im/chatterbox/internal/database"
	"github.com/chatterbox-im/chatterbox/internal/server"
	"github.com/chatterbox-im/chatterbox/internal/stats"
	"github.com/chatterbox-im/chatterbox/internal/testutil"
)

// newWsTestServer wires the full stack behind an httptest server:
// registry, engine, and websocket endpoint against a mock repository.
func newWsTestServer(t *testing.T, db database.ChatRepository) *httptest.Server {
	su := &stats.MockStatsUpdater{}
	su.On("RegisterMetric", mock.Anything).Times(4)
	su.On("Incr", mock.Anything).Maybe()
	su.On("Decr", mock.Anything).Maybe()

	logger := testutil.TestLogger(t)
	registry := server.NewSessionRegistry(logger, su)
	engine := server.NewEngine(logger, db, registry, su)

	mux := http.NewServeMux()
	cfg := &config.Config{
		ServerAddr: "localhost:8000",
		SigningKey: testSigningKey,
	}
	NewApp(mux, logger, engine, registry, db, auth.NewTokenVerifier(testSigningKey), cfg)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func wsUrl(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func TestServeWs_RejectsUnauthenticatedHandshake(t *testing.T) {
	db := &database.MockChatRepository{}
	defer db.AssertExpectations(t)

	srv := newWsTestServer(t, db)

	tcases := []struct {
		name   string
		header http.Header
	}{
		{"no token", nil},
		{"malformed token", http.Header{"Authorization": {"Bearer not-a-token"}}},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			conn, resp, err := websocket.DefaultDialer.Dial(wsUrl(srv), tc.header)
			assert.Error(t, err, "expected the handshake to fail")
			assert.Nil(t, conn)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		})
	}

	db.AssertNotCalled(t, "GetAccountById", mock.Anything)
}

func TestServeWs_RejectsUnknownAccount(t *testing.T) {
	db := &database.MockChatRepository{}
	defer db.AssertExpectations(t)
	db.On("GetAccountById", 42).Return(database.User{}, sql.ErrNoRows).Once()

	srv := newWsTestServer(t, db)

	token, err := auth.NewTokenVerifier(testSigningKey).IssueToken(42, "ghost@example.com", time.Hour)
	assert.NoError(t, err)

	conn, resp, err := websocket.DefaultDialer.Dial(wsUrl(srv),
		http.Header{"Authorization": {"Bearer " + token}})
	assert.Error(t, err, "expected the handshake to fail for a deleted account")
	assert.Nil(t, conn)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestServeWs_EndToEnd(t *testing.T) {
	db := &database.MockChatRepository{}
	defer db.AssertExpectations(t)

	db.On("GetAccountById", 1).Return(database.User{
		Id:       1,
		Username: "alice",
		Email:    "alice@example.com",
	}, nil).Once()
	db.On("ListConversationsForUser", 1).Return([]database.Conversation{
		{Id: 10, Members: []database.User{{Id: 1, Username: "alice"}}},
	}, nil).Once()

	srv := newWsTestServer(t, db)

	token, err := auth.NewTokenVerifier(testSigningKey).IssueToken(1, "alice@example.com", time.Hour)
	assert.NoError(t, err)

	// token accepted via query parameter as well as the header
	conn, _, err := websocket.DefaultDialer.Dial(wsUrl(srv)+"?token="+token, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	err = conn.WriteMessage(websocket.TextMessage, []byte(`{"get_user_conversations":{}}`))
	assert.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, raw, err := conn.ReadMessage()
	assert.NoError(t, err)
	assert.JSONEq(t, `{"user_conversations":{"conversations":[
		{"id":10,"participants":[{"id":1,"username":"alice"}]}
	]}}`, string(raw))
}
