package main

import (
	"log"
	"log/slog"
	nethttp "net/http"
	"os"

	"jobchat-ai/internal/config"
	"jobchat-ai/internal/http"
	"jobchat-ai/internal/llm"
	"jobchat-ai/internal/service"
	"jobchat-ai/internal/storage"
	"jobchat-ai/web"
)

//go:generate swagger generate spec -o swagger.json

// General API information
//
// This API backs the "describe your job" chat widget: it relays visitor
// messages to an OpenAI-compatible chat completion API, degrades to safe
// replies when the upstream fails, and serves a usage report over the
// recorded calls.
//
// swagger:meta
//
// ---
// swagger: '2.0'
// info:
//   title: JobChat AI API
//   description: |
//     Chat relay between the website widget and an OpenAI-compatible chat
//     completion API, with bounded retries, safe degradation, and a usage ledger.
//   version: 1.0.0
// schemes:
//   - http
//   - https
// consumes:
//   - application/json
// produces:
//   - application/json

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	// Initialize the usage ledger
	db, err := storage.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := storage.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	slog.Info("Database initialized", "path", cfg.DBPath)

	usageRepo := storage.NewUsageRepo(db)

	// Create LLM client (external service layer)
	llmClient := llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModelName,
		llm.DefaultRetryPolicy(cfg.LLMMaxRetries))

	// Create chat service
	chatService := service.NewChatService(llmClient, usageRepo, llm.ChatParams{
		Model:       cfg.LLMModelName,
		Temperature: cfg.LLMTemperature,
		MaxTokens:   cfg.LLMMaxTokens,
	})
	slog.Info("Chat service initialized", "model", cfg.LLMModelName)

	// Create router with dependencies
	deps := &http.Deps{
		ChatService: chatService,
		UsageReader: usageRepo,
		DB:          db,
		IndexHTML:   web.WidgetHTML,
	}
	router := http.NewRouter(deps)

	// Start API server
	addr := ":" + cfg.APIPort
	slog.Info("Starting API server", "addr", addr)
	slog.Debug("LLM configuration",
		"base_url", cfg.LLMBaseURL, "model", cfg.LLMModelName, "max_retries", cfg.LLMMaxRetries)
	if err := nethttp.ListenAndServe(addr, router); err != nil {
		log.Fatalf("API server failed to start: %v", err)
	}
}
