package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gmailish/syncd/internal/api"
	"github.com/gmailish/syncd/internal/config"
	"github.com/gmailish/syncd/internal/database"
	"github.com/gmailish/syncd/internal/logger"
	"github.com/gmailish/syncd/internal/remote"
	"github.com/gmailish/syncd/internal/sync"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(slogger)

	slog.Info("starting syncd")

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer database.Close(db)

	if err := database.Migrate(db); err != nil {
		slog.Error("failed to run migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}

	syncLog := logger.NewSyncLogger(cfg.SlogLevel())
	client := remote.NewHTTPClient(cfg.APIBaseURL, time.Duration(cfg.HTTPTimeout)*time.Second)

	// Static token from the environment; a real deployment injects a
	// session-aware provider here.
	tokens := remote.TokenProvider(func() (string, error) {
		return cfg.SessionToken, nil
	})

	reconciler := sync.NewReconciler(db, client, tokens, syncLog)

	e := api.NewRouter(&api.RouterConfig{
		DB:         db,
		Reconciler: reconciler,
		Logger:     slogger,
	})

	go func() {
		addr := fmt.Sprintf(":%d", cfg.APIPort)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			slog.Error("trigger server stopped", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		slog.Error("failed to shut down cleanly", slog.String("error", err.Error()))
	}
	slog.Info("stopped")
}
