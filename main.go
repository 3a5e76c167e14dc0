package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"userbook/internal/app"
	"userbook/internal/config"
	"userbook/internal/repositories"
)

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := app.NewLogger(cfg)
	slog.SetDefault(logger)

	// --- Dependencies ---
	ctx := context.Background()
	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		if errors.Is(err, repositories.ErrConnection) {
			logger.Error("user store unreachable, cannot start", "driver", cfg.StoreDriver, "error", err)
		} else {
			logger.Error("failed to initialise application", "error", err)
		}
		os.Exit(1)
	}

	// --- Start HTTP Server ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("starting server", "addr", cfg.AppPort)
		if err := application.Fiber.Listen(cfg.AppPort); err != nil {
			logger.Error("server failed", "error", err)
			quit <- syscall.SIGTERM
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	<-quit
	logger.Info("shutting down server")

	if err := application.Fiber.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("error during fiber shutdown", "error", err)
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := application.Close(closeCtx); err != nil {
		logger.Error("error releasing resources", "error", err)
	}
	logger.Info("server gracefully stopped")
}
