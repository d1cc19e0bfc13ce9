package gemini

import (
	"context"

	"google.golang.org/genai"
)

// modelAPI is the subset of the genai client the generator depends on.
type modelAPI interface {
	GenerateContent(ctx context.Context, model string, prompt string) (*genai.GenerateContentResponse, error)
	EmbedContent(ctx context.Context, model string, text string) (*genai.EmbedContentResponse, error)
}

// genaiModels adapts *genai.Client to modelAPI.
type genaiModels struct {
	client *genai.Client
}

func (m genaiModels) GenerateContent(ctx context.Context, model string, prompt string) (*genai.GenerateContentResponse, error) {
	return m.client.Models.GenerateContent(ctx, model, genai.Text(prompt), nil)
}

func (m genaiModels) EmbedContent(ctx context.Context, model string, text string) (*genai.EmbedContentResponse, error) {
	return m.client.Models.EmbedContent(ctx, model, genai.Text(text), nil)
}
