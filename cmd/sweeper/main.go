package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/vietddude/stylelog"
	"github.com/vietddude/sweeper/internal/control"
	"github.com/vietddude/sweeper/internal/core/config"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	envPath := flag.String("env", ".env", "Path to .env file")
	isDebug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	// Load .env and configuration first (before setting up logger)
	if err := config.LoadEnv(*envPath); err != nil {
		stylelog.InitDefault()
		slog.Error("Failed to load env", "error", err)
		os.Exit(1)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		// Fall back to default logger for config load errors
		stylelog.InitDefault()
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	slogLevel := slog.LevelInfo
	if *isDebug || cfg.Logging.Level == "debug" {
		slogLevel = slog.LevelDebug
	}

	stylelog.InitDefault(
		&tint.Options{
			Level:      slogLevel,
			TimeFormat: time.RFC3339,
		})
	slog.Info("Logger initialized", "level", slogLevel.String())

	// Transform config
	controlCfg := control.Config{
		Port:       cfg.Server.Port,
		Chain:      cfg.Chain,
		Sweep:      cfg.Sweep,
		Relay:      cfg.Relay,
		Supervisor: cfg.Supervisor,
		Redis:      cfg.Redis,
	}

	// Initialize Sweeper
	app, err := control.NewSweeper(controlCfg)
	if err != nil {
		slog.Error("Failed to initialize Sweeper", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle OS Signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	if err := app.Start(ctx); err != nil {
		slog.Error("Failed to start Sweeper", "error", err)
		os.Exit(1)
	}

	// SIGHUP forces a reconnect to the next endpoint
	sig := <-sigChan
	for sig == syscall.SIGHUP {
		app.Supervisor().Restart("SIGHUP")
		sig = <-sigChan
	}
	slog.Info("Received signal, shutting down...", "signal", sig)

	// Graceful Shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.Stop(shutdownCtx); err != nil {
		slog.Error("Error during shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Sweeper stopped gracefully")
}
