package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/pairlink/pairlink/internal/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run owns the process lifecycle so that deferred cleanup executes before
// exit and the wiring stays testable.
func run() error {
	_ = godotenv.Load()

	cfg, err := server.LoadConfig()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := newLogger(cfg.LogLevel)

	hub := server.NewHub(cfg, log)
	go hub.Run()

	srv := server.CreateServer(cfg.Port, server.SetupRoutes(hub))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	log.Info("server listening", "addr", cfg.Port)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case sig := <-sigCh:
		log.Info("shutting down", "signal", sig.String())
	}

	if err := server.ShutdownServer(srv, cfg.ShutdownTimeout); err != nil {
		log.Warn("http shutdown", "error", err)
	}
	return hub.Shutdown(cfg.ShutdownTimeout)
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
