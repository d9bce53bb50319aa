package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/handlers"

	"github.com/chatterbox-im/chatterbox/internal/auth"
	"github.com/chatterbox-im/chatterbox/internal/config"
	"github.com/chatterbox-im/chatterbox/internal/database"
	"github.com/chatterbox-im/chatterbox/internal/server"
)

type App struct {
	log            *log.Logger
	db             database.ChatRepository
	engine         *server.Engine
	registry       *server.SessionRegistry
	verifier       *auth.TokenVerifier
	mux            *http.Server
	validate       *validator.Validate
	allowedOrigins []string
}

func NewApp(mux *http.ServeMux, logger *log.Logger, engine *server.Engine, registry *server.SessionRegistry,
	db database.ChatRepository, verifier *auth.TokenVerifier, cfg *config.Config) *App {
	s := &App{
		log:            logger,
		db:             db,
		engine:         engine,
		registry:       registry,
		verifier:       verifier,
		validate:       validator.New(),
		allowedOrigins: cfg.AllowedOrigins,
	}

	mux.HandleFunc("GET /healthz", s.healthCheck)
	mux.HandleFunc("POST /api/auth/register", s.register)
	mux.HandleFunc("POST /api/auth/login", s.login)
	mux.HandleFunc("GET /ws", s.serveWs)

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept", "Authorization"}),
		handlers.AllowCredentials(),
	)(mux)

	h = s.errorHandler(h)

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	s.mux = srv
	return s
}

func (s *App) Start() error {
	s.log.Printf("starting server on %s\n", s.mux.Addr)
	return s.mux.ListenAndServe()
}

func (s *App) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.mux.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
