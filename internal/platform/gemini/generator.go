package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/phrazzld/marketing-jobs/internal/config"
	"github.com/phrazzld/marketing-jobs/internal/generation"
	"google.golang.org/genai"
)

// Generator implements generation.Generator using Google's Gemini API.
type Generator struct {
	logger *slog.Logger
	api    modelAPI

	model          string
	embeddingModel string
	maxRetries     int
	baseDelay      time.Duration

	// jitter returns a value in [0, 1)
	jitter func() float64
}

var _ generation.Generator = (*Generator)(nil)

// NewGenerator creates a Generator backed by a live genai client.
func NewGenerator(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*Generator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	cfg, err := validateConfig(ctx, logger, cfg)
	if err != nil {
		return nil, err
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v",
			generation.ErrInvalidConfig, err)
	}

	logger.InfoContext(ctx, "Initialized Gemini generator",
		"model", cfg.ModelName,
		"embedding_model", cfg.EmbeddingModel)

	return newGenerator(logger, genaiModels{client: client}, cfg), nil
}

func newGenerator(logger *slog.Logger, api modelAPI, cfg config.LLMConfig) *Generator {
	return &Generator{
		logger:         logger.With("component", "gemini_generator"),
		api:            api,
		model:          cfg.ModelName,
		embeddingModel: cfg.EmbeddingModel,
		maxRetries:     cfg.MaxRetries,
		baseDelay:      time.Duration(cfg.RetryDelaySeconds) * time.Second,
		jitter:         rand.Float64,
	}
}

// GenerateText sends prompt to the text model and returns the concatenated
// text of the first candidate.
func (g *Generator) GenerateText(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", ErrEmptyPrompt
	}

	var text string
	err := g.withRetry(ctx, "generate_text", func() error {
		resp, err := g.api.GenerateContent(ctx, g.model, prompt)
		if err != nil {
			return fmt.Errorf("%w: %w", generation.ErrTransientFailure, err)
		}
		text, err = extractText(resp)
		return err
	})
	if err != nil {
		return "", err
	}
	return text, nil
}

// EmbedText returns the embedding vector for text.
func (g *Generator) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyPrompt
	}

	var values []float32
	err := g.withRetry(ctx, "embed_text", func() error {
		resp, err := g.api.EmbedContent(ctx, g.embeddingModel, text)
		if err != nil {
			return fmt.Errorf("%w: %w", generation.ErrTransientFailure, err)
		}
		if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
			return fmt.Errorf("%w: no embedding returned", generation.ErrInvalidResponse)
		}
		values = resp.Embeddings[0].Values
		return nil
	})
	if err != nil {
		return nil, err
	}
	return values, nil
}

// extractText validates a generation response and joins the text parts of
// its first candidate.
func extractText(resp *genai.GenerateContentResponse) (string, error) {
	switch {
	case resp == nil:
		return "", fmt.Errorf("%w: nil response", generation.ErrInvalidResponse)
	case len(resp.Candidates) == 0:
		return "", fmt.Errorf("%w: no content generated", generation.ErrInvalidResponse)
	case resp.Candidates[0].FinishReason == genai.FinishReasonSafety:
		return "", fmt.Errorf("%w: content blocked by safety filters", generation.ErrContentBlocked)
	case resp.Candidates[0].Content == nil:
		return "", fmt.Errorf("%w: empty content in response", generation.ErrInvalidResponse)
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("%w: response has no text", generation.ErrInvalidResponse)
	}
	return sb.String(), nil
}

// withRetry runs call until it succeeds, fails permanently, or the retry
// budget is spent. Only generation.ErrTransientFailure is retried.
func (g *Generator) withRetry(ctx context.Context, op string, call func() error) error {
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := call()
		if err == nil {
			if attempt > 0 {
				g.logger.InfoContext(ctx, "Gemini API call succeeded after retry",
					"operation", op,
					"attempt", attempt+1)
			}
			return nil
		}

		// A call cut short by cancellation reports the cancellation, not the
		// transport error it surfaced as.
		if ctxErr := ctx.Err(); ctxErr != nil {
			g.logger.InfoContext(ctx, "Gemini API call cancelled",
				"operation", op,
				"attempt", attempt+1,
				"error", err)
			return ctxErr
		}

		if !generation.IsRetryable(err) {
			g.logger.WarnContext(ctx, "Permanent error occurred, not retrying",
				"operation", op,
				"error", err)
			return err
		}
		if attempt >= g.maxRetries {
			g.logger.WarnContext(ctx, "Maximum retry attempts reached",
				"operation", op,
				"max_retries", g.maxRetries,
				"error", err)
			return fmt.Errorf("exceeded maximum retry attempts (%d): %w", g.maxRetries, err)
		}

		delay := backoffDelay(g.baseDelay, attempt, g.jitter())
		g.logger.InfoContext(ctx, "Retrying after delay",
			"operation", op,
			"attempt", attempt+1,
			"delay", delay,
			"error", err)

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

// backoffDelay computes base * 2^attempt scaled by a jitter factor in
// [0.5, 1.0).
func backoffDelay(base time.Duration, attempt int, jitter float64) time.Duration {
	backoff := float64(base) * math.Pow(2, float64(attempt))
	return time.Duration(backoff * (0.5 + jitter*0.5))
}
