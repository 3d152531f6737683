package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"assistant-dashboard/internal/api"
	"assistant-dashboard/internal/chat"
	"assistant-dashboard/internal/config"
	"assistant-dashboard/internal/logging"
	"assistant-dashboard/internal/session"
	"assistant-dashboard/internal/storage"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	// stdout carries the protocol; logs go to stderr.
	logger, err := logging.New(cfg.LogLevel, "")
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	repo, err := session.NewFileRepository(cfg.SessionFilePath)
	if err != nil {
		logger.Fatal("failed to open session file", zap.Error(err))
	}
	store := session.NewStore(repo, session.WithLogger(logger))
	client := api.New(cfg.BackendURL, cfg.RequestTimeout, api.WithLogger(logger))

	opts := []chat.Option{chat.WithLogger(logger)}
	if cfg.ExchangeLogPath != "" {
		rec, err := storage.NewFileRecorder(cfg.ExchangeLogPath)
		if err != nil {
			logger.Warn("failed to init exchange archive", zap.Error(err))
		} else {
			opts = append(opts, chat.WithRecorder(rec))
		}
	}

	assistant := NewAssistantMCPServer(client, store, opts, logger)
	defer assistant.Close()

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "assistant-dashboard-mcp",
		Version: "1.0.0",
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ask_assistant",
		Description: "Sends a prompt to the AI assistant using the logged-in dashboard session and returns its reply",
	}, assistant.Ask)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "fetch_history",
		Description: "Lists the prompts previously sent to the assistant, oldest first",
	}, assistant.FetchHistory)

	logger.Info("starting MCP server on stdin/stdout", zap.Strings("tools", []string{"ask_assistant", "fetch_history"}))

	if err := server.Run(context.Background(), mcp.NewStdioTransport()); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}
