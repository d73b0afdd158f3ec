// Package main is the entry point for the telemetry relay.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/russrimm/appinsights-relay/internal/config"
	"github.com/russrimm/appinsights-relay/internal/monitoring"
	"github.com/russrimm/appinsights-relay/internal/relay"
)

// loadEnvFiles loads .env from standard locations
func loadEnvFiles() {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		_ = godotenv.Load()
		return
	}

	// Try loading from ~/.config/appinsights-relay/.env first
	configEnv := filepath.Join(homeDir, ".config", "appinsights-relay", ".env")
	if _, err := os.Stat(configEnv); err == nil {
		_ = godotenv.Load(configEnv)
	}

	// Also load local .env (can override)
	_ = godotenv.Load()
}

func main() {
	loadEnvFiles()

	configPath := flag.String("config", "configs/relay.yaml", "path to config file")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	level := "info"
	if *debug {
		level = "debug"
	}
	monitoring.Global(monitoring.LoggerConfig{Level: level, Format: "console"})

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("config", *configPath).Msg("failed to load configuration")
	}

	log.Info().
		Int("port", cfg.Server.Port).
		Str("role", cfg.Ingestion.RoleName).
		Int("workers", cfg.Relay.Workers).
		Bool("deadletter", cfg.DeadLetter.Path != "").
		Msg("configuration loaded")

	rly, err := relay.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build relay")
	}

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info().Msg("shutdown signal received")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := rly.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("relay shutdown error")
		}
	}()

	if err := rly.Start(); err != nil {
		if err.Error() != "http: Server closed" {
			log.Fatal().Err(err).Msg("relay error")
		}
	}

	log.Info().Msg("telemetry relay stopped")
}
