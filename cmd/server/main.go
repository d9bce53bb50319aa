package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/chatterbox-im/chatterbox/internal/api"
	"github.com/chatterbox-im/chatterbox/internal/auth"
	"github.com/chatterbox-im/chatterbox/internal/config"
	"github.com/chatterbox-im/chatterbox/internal/database"
	"github.com/chatterbox-im/chatterbox/internal/server"
	"github.com/chatterbox-im/chatterbox/internal/stats"
)

func main() {
	// .env is optional, environment variables win
	_ = godotenv.Load()

	logger := log.New(os.Stderr, "[chatterbox] ", log.LstdFlags)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config: ", err)
	}

	if err := runMigrations(cfg); err != nil {
		logger.Fatal("migrations: ", err)
	}

	dbConn, err := database.NewPgChatRepository(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("db open: ", err)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Println("db close:", err)
		}
	}()

	mux := http.NewServeMux()

	statsUpdater := stats.NewStatsUpdater(mux)

	registry := server.NewSessionRegistry(logger, statsUpdater)
	engine := server.NewEngine(logger, dbConn, registry, statsUpdater)
	verifier := auth.NewTokenVerifier(cfg.SigningKey)

	app := api.NewApp(mux, logger, engine, registry, dbConn, verifier, cfg)

	statsUpdater.Run()
	defer statsUpdater.Stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Printf("received signal: %s\n", sig)
	case err := <-errCh:
		logger.Println("server:", err)
	}

	shutDownCtx, cancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer cancel()

	if err := app.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("HTTP server shutdown:", err)
	}

	logger.Println("shutdown complete")
}

func runMigrations(cfg *config.Config) error {
	m, err := migrate.New("file://"+cfg.MigrationsPath, cfg.DatabaseDSN)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	srcErr, dbErr := m.Close()
	if srcErr != nil {
		return srcErr
	}
	return dbErr
}
