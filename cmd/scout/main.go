// Command scout runs one research query against the marketplace and prints
// the per-product analyses to stdout.
//
// Usage:
//
//	scout "wireless water flosser"
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/shelf-labs/scout/cache"
	"github.com/shelf-labs/scout/config"
	"github.com/shelf-labs/scout/models"
	"github.com/shelf-labs/scout/research"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()
	initLogger(cfg.Log)

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: scout <query>")
		os.Exit(1)
	}
	query := strings.Join(os.Args[1:], " ")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pipeline := research.New(cfg, cache.New(cfg.Cache.MaxEntries, cfg.Cache.MaxAge))

	report, _, err := pipeline.Run(ctx, query, cfg.Market.ProductLimit)
	if err != nil {
		slog.Error("research run failed", "query", query, "error", err)
		os.Exit(1)
	}

	printReport(report)
}

// printReport writes the batch outcome in harvest order.
func printReport(report *models.Report) {
	fmt.Printf("Query: %s\n", report.Query)
	if report.ReplayURL != "" {
		fmt.Printf("Session replay: %s\n", report.ReplayURL)
	}
	fmt.Printf("Harvested %d result(s), processed %d\n", report.Harvested, len(report.Entries))

	for i, entry := range report.Entries {
		fmt.Printf("\n[%d] %s\n    %s\n", i+1, entry.ASIN, entry.URL)

		if entry.Failed() {
			fmt.Printf("    extraction failed: %s\n", entry.Failure.Message)
			continue
		}

		fmt.Printf("    Title:        %s\n", entry.Info.Title)
		fmt.Printf("    Portable:     %t\n", entry.Analysis.IsPortable)
		fmt.Printf("    Rechargeable: %t\n", entry.Analysis.IsRechargeable)
		fmt.Printf("    Value score:  %g\n", entry.Analysis.ValueScore)
		if entry.Analysis.BrandReputation != nil {
			fmt.Printf("    Brand reputation: %d\n", *entry.Analysis.BrandReputation)
		}
		fmt.Printf("    Reasoning:    %s\n", entry.Analysis.Reasoning)
	}
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
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}
