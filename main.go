package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"aigent-client/api"
	"aigent-client/chat"
	"aigent-client/config"
	"aigent-client/session"
	"aigent-client/web"

	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	// Initialize logger with default level to load config
	tempLogger, err := config.InitLogger("info")
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	// Load config (which includes log level setting)
	cfg := config.Load(tempLogger)

	// Re-initialize logger with configured level
	logger, err := config.InitLogger(cfg.LogLevel)
	if err != nil {
		fmt.Printf("Failed to re-initialize logger with configured level: %v\n", err)
		os.Exit(1)
	}
	defer config.Cleanup()

	store, err := session.NewFileStore(cfg.TokenFile)
	if err != nil {
		logger.Fatal("Failed to open session store", zap.Error(err))
	}
	if s := store.Get(); s.Theme == "" {
		if err := store.SetTheme(cfg.Theme); err != nil {
			logger.Warn("Failed to persist default theme", zap.Error(err))
		}
	}

	apiClient := api.New(cfg, store, logger)
	engine := chat.NewEngine(apiClient, cfg, logger)

	webServer, err := web.NewServer(apiClient, engine, store, logger, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize web server", zap.Error(err))
	}

	// Create context that listens for interrupt signals
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Abandoned poll chains must not outlive the process.
	defer engine.CancelAll()

	addr := fmt.Sprintf(":%d", cfg.WebPort)
	logger.Info("Starting Aigent chat client",
		zap.String("address", addr),
		zap.String("api", cfg.APIBaseURL))
	if err := webServer.Start(ctx, addr); err != nil {
		logger.Error("Web server error", zap.Error(err))
		os.Exit(1)
	}
}
