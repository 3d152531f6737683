package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"assistant-dashboard/internal/api"
	"assistant-dashboard/internal/auth"
	"assistant-dashboard/internal/config"
	"assistant-dashboard/internal/logging"
	"assistant-dashboard/internal/session"
	"assistant-dashboard/internal/storage"
	"assistant-dashboard/internal/telegram"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	if err := cfg.RequireTelegram(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	// The bot does not own a terminal, so it logs to stderr.
	logger, err := logging.New(cfg.LogLevel, "")
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	var allowRepo auth.Repository
	if cfg.AllowlistFilePath != "" {
		repo, err := auth.NewFileRepository(cfg.AllowlistFilePath)
		if err != nil {
			logger.Warn("failed to init allowlist repo", zap.Error(err))
		} else {
			allowRepo = repo
		}
	}
	authSvc, err := auth.NewWithRepo(allowRepo, cfg.AllowedUsers)
	if err != nil {
		logger.Fatal("failed to init auth", zap.Error(err))
	}

	var pendingRepo auth.Repository
	if cfg.PendingFilePath != "" {
		repo, err := auth.NewFileRepository(cfg.PendingFilePath)
		if err != nil {
			logger.Warn("failed to init pending repo", zap.Error(err))
		} else {
			pendingRepo = repo
		}
	}

	sessions, err := session.NewFileRepository(cfg.SessionFilePath)
	if err != nil {
		logger.Fatal("failed to init session file", zap.Error(err))
	}

	var rec storage.Recorder
	if cfg.ExchangeLogPath != "" {
		fr, err := storage.NewFileRecorder(cfg.ExchangeLogPath)
		if err != nil {
			logger.Warn("failed to init exchange archive", zap.Error(err))
		} else {
			rec = fr
		}
	}

	bot, err := telegram.New(cfg.TelegramBotToken, telegram.Config{
		Backend:       api.New(cfg.BackendURL, cfg.RequestTimeout, api.WithLogger(logger)),
		Sessions:      sessions,
		Auth:          authSvc,
		Pending:       pendingRepo,
		AdminUserID:   cfg.AdminUserID,
		RedirectDelay: cfg.SignupRedirectDelay,
		Recorder:      rec,
		Logger:        logger,
	})
	if err != nil {
		logger.Fatal("failed to create bot", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	bot.Start(ctx)
}
