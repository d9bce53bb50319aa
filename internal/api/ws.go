package api

import (
	"database/sql"
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/teris-io/shortid"

	"github.com/chatterbox-im/chatterbox/internal/server"
)

// bearerToken extracts the handshake credential from the Authorization
// header or, failing that, the token query parameter.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		return strings.TrimPrefix(h, "Bearer ")
	}

	return r.URL.Query().Get("token")
}

// serveWs authenticates the handshake and hands the connection to the
// messaging engine. A connection that fails verification is rejected
// before any session state exists.
func (s *App) serveWs(w http.ResponseWriter, r *http.Request) {
	identity, err := s.verifier.Verify(bearerToken(r))
	if err != nil {
		s.log.Printf("ws handshake rejected: %v", err)
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	user, err := s.db.GetAccountById(identity.UserId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewUnauthorizedError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}

			return slices.Contains(s.allowedOrigins, origin)
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Println("error upgrading connection:", err)
		return
	}

	connectionId, err := shortid.Generate()
	if err != nil {
		s.log.Println("generate connection id:", err)
		conn.Close()
		return
	}

	session, err := s.registry.Register(connectionId, userFromDb(user))
	if err != nil {
		// duplicate connection id, should not occur
		s.log.Println("register session:", err)
		conn.Close()
		return
	}

	client := server.NewClient(session, conn, s.engine, s.log)

	go client.Write()
	go client.Read()
}
