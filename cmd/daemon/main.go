// Path: cmd/daemon/main.go
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"tictactoe/internal/app"
	"tictactoe/internal/config"
	"tictactoe/internal/logging"
)

func main() {
	// 1. Parse flags and load a .env file when present
	service := pflag.String("service", string(app.RoleAll), "service to run: player, game, request, realtime or all")
	configFile := pflag.String("config", "", "path to a config file (default ./configs/config.yaml)")
	pflag.Parse()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Fatalf("Failed to load .env file: %v", err)
	}

	role, err := app.ParseRole(*service)
	if err != nil {
		log.Fatalf("Invalid --service: %v", err)
	}

	// 2. Load Configuration
	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(role == app.RoleAll); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// 3. Initialize the logger
	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()
	logger = logger.With(zap.String("role", string(role)))

	// 4. Setup Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 5. Connect to the store and bus and wire the services
	rt, err := app.New(ctx, cfg, role, logger)
	if err != nil {
		logger.Fatal("Failed to initialize services", zap.Error(err))
	}

	// 6. Start consumers and API servers in the background
	if err := rt.Start(ctx); err != nil {
		logger.Fatal("Failed to start services", zap.Error(err))
	}

	// 7. Wait for shutdown signal or a fatal background error
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
		logger.Info("Shutdown signal received. Shutting down gracefully...")
	case err := <-rt.Errors():
		logger.Error("Service failed, shutting down", zap.Error(err))
	}

	// Cancel the main context to signal consumers to stop
	cancel()

	// Give background processes time to stop
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := rt.Stop(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server shut down successfully.")
}
