// chatrelay server: exposes an OpenAI-compatible completions API backed by
// a browser-driven generation surface, reconciling its fragment stream into
// well-formed responses.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/chatrelay/chatrelay/pkg/api"
	"github.com/chatrelay/chatrelay/pkg/config"
	"github.com/chatrelay/chatrelay/pkg/ingest"
	"github.com/chatrelay/chatrelay/pkg/session"
	"github.com/chatrelay/chatrelay/pkg/version"
)

// sessionGraceTimeout bounds how long shutdown waits for the in-flight
// generation to observe the shutdown flag and finish.
const sessionGraceTimeout = 10 * time.Second

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configPath := flag.String("config",
		getEnv("CONFIG_PATH", "./chatrelay.yaml"),
		"Path to configuration file")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file loaded, continuing with existing environment", "error", err)
	}

	slog.Info("Starting chatrelay", "version", version.Full(), "config", *configPath)

	cfg, err := config.Initialize(*configPath)
	if err != nil {
		slog.Error("Failed to initialize configuration", "error", err)
		os.Exit(1)
	}

	hub := ingest.NewHub(0)
	sessions := session.NewManager()
	server := api.NewServer(cfg, hub, sessions)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		slog.Info("Shutdown signal received", "signal", sig)
	case err := <-errCh:
		slog.Error("Server error triggered shutdown", "error", err)
	}

	// The running session observes the flag on its next poll and ends with a
	// global_shutdown terminal event; give it a bounded grace period before
	// force-cancelling.
	sessions.Shutdown()
	graceDeadline := time.Now().Add(sessionGraceTimeout)
	for {
		if _, active := sessions.ActiveID(); !active {
			break
		}
		if time.Now().After(graceDeadline) {
			slog.Warn("Session grace period exceeded, force-cancelling")
			sessions.CancelActive()
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("Shutdown complete")
}
