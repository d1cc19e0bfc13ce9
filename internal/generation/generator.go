package generation

import (
	"context"
)

// Generator defines the boundary between the task executors and external
// AI/LLM services, following the hexagonal architecture pattern.
type Generator interface {
	// GenerateText produces a completion for the given prompt.
	// It returns an error from errors.go when generation fails.
	GenerateText(ctx context.Context, prompt string) (string, error)

	// EmbedText returns an embedding vector for text.
	EmbedText(ctx context.Context, text string) ([]float32, error)
}
