// Command scout-server exposes the research pipeline over HTTP.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/shelf-labs/scout/api"
	"github.com/shelf-labs/scout/api/handler"
	"github.com/shelf-labs/scout/cache"
	"github.com/shelf-labs/scout/config"
	"github.com/shelf-labs/scout/research"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	_ = godotenv.Load()
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	slog.Info("scout-server starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"market", cfg.Market.BaseURL,
		"remoteSessions", cfg.Session.APIKey != "",
	)

	// ── 3. Shared analysis cache ────────────────────────────────────
	analyses := cache.New(cfg.Cache.MaxEntries, cfg.Cache.MaxAge)

	// ── 4. Pipeline factory ─────────────────────────────────────────
	// Each request gets its own pipeline (and so its own session); the
	// analysis cache is the only shared state between runs.
	newRunner := func(includeBrandReputation *bool) handler.Runner {
		runCfg := *cfg
		if includeBrandReputation != nil {
			runCfg.LLM.IncludeBrandReputation = *includeBrandReputation
		}
		return research.New(&runCfg, analyses)
	}

	// ── 5. Router and HTTP server ───────────────────────────────────
	startTime := time.Now()
	router := api.NewRouter(newRunner, cfg, startTime)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 6. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	// In-flight research runs can hold a browser session for a while.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	slog.Info("scout-server stopped")
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
