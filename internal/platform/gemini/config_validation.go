package gemini

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/marketing-jobs/internal/config"
	"github.com/phrazzld/marketing-jobs/internal/generation"
)

const (
	defaultMaxRetries        = 3
	defaultRetryDelaySeconds = 2
)

// validateConfig checks the settings the generator cannot run without and
// normalizes retry settings that fall outside their usable range.
func validateConfig(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (config.LLMConfig, error) {
	if cfg.GeminiAPIKey == "" {
		return cfg, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.ModelName == "" {
		return cfg, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.EmbeddingModel == "" {
		return cfg, fmt.Errorf("%w: embedding model cannot be empty", generation.ErrInvalidConfig)
	}

	if cfg.MaxRetries < 0 {
		logger.WarnContext(ctx, "Invalid MaxRetries value",
			"value", cfg.MaxRetries,
			"action", "using default value")
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.RetryDelaySeconds < 1 {
		logger.WarnContext(ctx, "Invalid RetryDelaySeconds value",
			"value", cfg.RetryDelaySeconds,
			"action", "using default value")
		cfg.RetryDelaySeconds = defaultRetryDelaySeconds
	}

	return cfg, nil
}
