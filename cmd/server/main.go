// Package main implements the entry point for the marketing jobs server,
// which accepts background marketing tasks over HTTP and runs them on a
// bounded pool of workers.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"

	"github.com/phrazzld/marketing-jobs/internal/config"
	"github.com/phrazzld/marketing-jobs/internal/generation"
	"github.com/phrazzld/marketing-jobs/internal/platform/gemini"
	"github.com/phrazzld/marketing-jobs/internal/platform/logger"
)

func main() {
	if err := run(context.Background()); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// run loads configuration, wires the application and serves until a
// shutdown signal arrives.
func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	log.Info("Server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"max_concurrent_jobs", cfg.Queue.MaxConcurrentJobs,
		"max_backlog", cfg.Queue.MaxBacklog,
		"strict_task_types", cfg.Queue.StrictTaskTypes)

	gen, err := newGenerator(ctx, log, cfg.LLM)
	if err != nil {
		return err
	}

	app, err := newApplication(cfg, log, gen)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	return app.startHTTPServer(ctx, app.setupRouter())
}

// newGenerator returns a Gemini-backed generator, or nil when no API key
// is configured.
func newGenerator(ctx context.Context, log *slog.Logger, cfg config.LLMConfig) (generation.Generator, error) {
	if cfg.GeminiAPIKey == "" {
		log.Warn("Gemini API key not configured, AI task types are disabled")
		return nil, nil
	}

	gen, err := gemini.NewGenerator(ctx, log, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Gemini generator: %w", err)
	}
	return gen, nil
}
