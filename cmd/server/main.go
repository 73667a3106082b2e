package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"example.com/arctic-chat/internal/ai"
	"example.com/arctic-chat/internal/chat"
	"example.com/arctic-chat/internal/config"
	"example.com/arctic-chat/internal/database"
	"example.com/arctic-chat/internal/notifications"
	"example.com/arctic-chat/internal/repository"
	"example.com/arctic-chat/internal/server"
)

func main() {
	ensureEnvFile()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx := context.Background()

	var generations server.Generations = repository.NopGenerations{}
	if cfg.Database.Enabled {
		db, err := database.Open(ctx, cfg.Database, logger)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := database.EnsureSchema(ctx, db); err != nil {
			return err
		}
		generations = repository.NewGenerationRepository(db)
	}

	client, err := server.NewAIClient(ctx, cfg.AI)
	if err != nil {
		return err
	}

	tokens := ai.NewHFTokenizer(cfg.Chat.TokenizerFile, cfg.Chat.TokenizerModel)
	if err := tokens.Preload(); err != nil {
		return err
	}

	sessions := chat.NewStore(chat.StoreConfig{
		Greeting:      cfg.Chat.Greeting,
		Temperature:   cfg.Chat.DefaultTemperature,
		TopP:          cfg.Chat.DefaultTopP,
		IdleTimeout:   cfg.Session.IdleTimeout,
		SweepInterval: cfg.Session.SweepInterval,
		MaxSessions:   cfg.Session.MaxSessions,
	})
	defer sessions.Close()

	hub := notifications.NewHub()
	defer hub.Close()

	e, err := server.New(cfg, logger, server.Dependencies{
		Text:        client,
		Images:      client,
		Tokens:      tokens,
		Generations: generations,
		Sessions:    sessions,
		Hub:         hub,
	})
	if err != nil {
		return err
	}
	httpServer := server.NewHTTPServer(cfg.Server, e)

	go func() {
		if err := e.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", slog.String("error", err.Error()))
		}
	}()
	logger.Info("server started",
		slog.String("addr", httpServer.Addr),
		slog.String("provider", cfg.AI.Provider),
		slog.String("model", cfg.AI.TextModel),
	)

	shutdownSignal := make(chan os.Signal, 1)
	signal.Notify(shutdownSignal, syscall.SIGINT, syscall.SIGTERM)
	<-shutdownSignal

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.String("error", err.Error()))
	}
	return nil
}

func ensureEnvFile() {
	if os.Getenv("ENV_FILE") != "" {
		return
	}

	if _, err := os.Stat(".env"); err == nil {
		_ = os.Setenv("ENV_FILE", ".env")
		return
	}

	if _, err := os.Stat("../.env"); err == nil {
		_ = os.Setenv("ENV_FILE", "../.env")
	}
}
