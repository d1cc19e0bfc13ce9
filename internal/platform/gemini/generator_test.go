package gemini

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/phrazzld/marketing-jobs/internal/config"
	"github.com/phrazzld/marketing-jobs/internal/generation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

// fakeAPI returns queued responses in order and records the calls made.
type fakeAPI struct {
	mu        sync.Mutex
	generates []generateResult
	embeds    []embedResult
	calls     int
	models    []string

	// onCall runs before each response is returned
	onCall func()
}

type generateResult struct {
	resp *genai.GenerateContentResponse
	err  error
}

type embedResult struct {
	resp *genai.EmbedContentResponse
	err  error
}

func (f *fakeAPI) GenerateContent(_ context.Context, model string, _ string) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.models = append(f.models, model)
	if f.onCall != nil {
		f.onCall()
	}
	r := f.generates[0]
	if len(f.generates) > 1 {
		f.generates = f.generates[1:]
	}
	return r.resp, r.err
}

func (f *fakeAPI) EmbedContent(_ context.Context, model string, _ string) (*genai.EmbedContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.models = append(f.models, model)
	if f.onCall != nil {
		f.onCall()
	}
	r := f.embeds[0]
	if len(f.embeds) > 1 {
		f.embeds = f.embeds[1:]
	}
	return r.resp, r.err
}

func textResponse(parts ...string) *genai.GenerateContentResponse {
	content := &genai.Content{Role: "model"}
	for _, p := range parts {
		content.Parts = append(content.Parts, &genai.Part{Text: p})
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: content, FinishReason: genai.FinishReasonStop}},
	}
}

func testConfig() config.LLMConfig {
	return config.LLMConfig{
		GeminiAPIKey:      "key",
		ModelName:         "text-model",
		EmbeddingModel:    "embed-model",
		MaxRetries:        2,
		RetryDelaySeconds: 1,
	}
}

func newTestGenerator(api modelAPI) *Generator {
	g := newGenerator(slog.New(slog.NewTextHandler(io.Discard, nil)), api, testConfig())
	g.baseDelay = time.Millisecond
	g.jitter = func() float64 { return 0 }
	return g
}

func TestGenerateText(t *testing.T) {
	t.Run("joins text parts", func(t *testing.T) {
		api := &fakeAPI{generates: []generateResult{{resp: textResponse("Hello, ", "world")}}}
		g := newTestGenerator(api)

		text, err := g.GenerateText(context.Background(), "say hello")
		require.NoError(t, err)
		assert.Equal(t, "Hello, world", text)
		assert.Equal(t, []string{"text-model"}, api.models)
	})

	t.Run("retries transient errors", func(t *testing.T) {
		api := &fakeAPI{generates: []generateResult{
			{err: errors.New("503 unavailable")},
			{resp: textResponse("ok")},
		}}
		g := newTestGenerator(api)

		text, err := g.GenerateText(context.Background(), "prompt")
		require.NoError(t, err)
		assert.Equal(t, "ok", text)
		assert.Equal(t, 2, api.calls)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		api := &fakeAPI{generates: []generateResult{{err: errors.New("timeout")}}}
		g := newTestGenerator(api)

		_, err := g.GenerateText(context.Background(), "prompt")
		require.Error(t, err)
		assert.ErrorIs(t, err, generation.ErrTransientFailure)
		assert.Equal(t, 3, api.calls, "one attempt plus two retries")
	})

	t.Run("exhausted retries keep the last error", func(t *testing.T) {
		api := &fakeAPI{generates: []generateResult{
			{err: errors.New("googleapi: Error 429: RESOURCE_EXHAUSTED quota")},
		}}
		g := newTestGenerator(api)
		g.maxRetries = 0

		_, err := g.GenerateText(context.Background(), "prompt")
		require.Error(t, err)
		assert.ErrorIs(t, err, generation.ErrTransientFailure)
		assert.Contains(t, err.Error(), "RESOURCE_EXHAUSTED")
		assert.Contains(t, err.Error(), "exceeded maximum retry attempts (0)")
		assert.Equal(t, 1, api.calls)
	})

	t.Run("client error keeps its cause", func(t *testing.T) {
		api := &fakeAPI{generates: []generateResult{{err: context.Canceled}}}
		g := newTestGenerator(api)
		g.maxRetries = 0

		_, err := g.GenerateText(context.Background(), "prompt")
		assert.ErrorIs(t, err, context.Canceled)
		assert.ErrorIs(t, err, generation.ErrTransientFailure)
	})

	t.Run("cancellation during the last attempt reports cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		api := &fakeAPI{
			generates: []generateResult{{err: errors.New("connection reset")}},
			onCall:    cancel,
		}
		g := newTestGenerator(api)
		g.maxRetries = 0

		_, err := g.GenerateText(ctx, "prompt")
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, api.calls)
	})

	t.Run("safety block is permanent", func(t *testing.T) {
		blocked := &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonSafety}},
		}
		api := &fakeAPI{generates: []generateResult{{resp: blocked}}}
		g := newTestGenerator(api)

		_, err := g.GenerateText(context.Background(), "prompt")
		assert.ErrorIs(t, err, generation.ErrContentBlocked)
		assert.Equal(t, 1, api.calls)
	})

	t.Run("empty candidates is invalid", func(t *testing.T) {
		api := &fakeAPI{generates: []generateResult{{resp: &genai.GenerateContentResponse{}}}}
		g := newTestGenerator(api)

		_, err := g.GenerateText(context.Background(), "prompt")
		assert.ErrorIs(t, err, generation.ErrInvalidResponse)
		assert.Equal(t, 1, api.calls)
	})

	t.Run("empty prompt", func(t *testing.T) {
		api := &fakeAPI{}
		g := newTestGenerator(api)

		_, err := g.GenerateText(context.Background(), "  ")
		assert.ErrorIs(t, err, ErrEmptyPrompt)
		assert.Zero(t, api.calls)
	})

	t.Run("cancelled context stops retries", func(t *testing.T) {
		api := &fakeAPI{generates: []generateResult{{err: errors.New("unavailable")}}}
		g := newTestGenerator(api)
		g.baseDelay = time.Hour

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(20 * time.Millisecond)
			cancel()
		}()

		_, err := g.GenerateText(ctx, "prompt")
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, api.calls)
	})
}

func TestEmbedText(t *testing.T) {
	t.Run("returns first embedding", func(t *testing.T) {
		api := &fakeAPI{embeds: []embedResult{{resp: &genai.EmbedContentResponse{
			Embeddings: []*genai.ContentEmbedding{{Values: []float32{0.1, 0.2, 0.3}}},
		}}}}
		g := newTestGenerator(api)

		values, err := g.EmbedText(context.Background(), "chunk")
		require.NoError(t, err)
		assert.Equal(t, []float32{0.1, 0.2, 0.3}, values)
		assert.Equal(t, []string{"embed-model"}, api.models)
	})

	t.Run("no embeddings is invalid", func(t *testing.T) {
		api := &fakeAPI{embeds: []embedResult{{resp: &genai.EmbedContentResponse{}}}}
		g := newTestGenerator(api)

		_, err := g.EmbedText(context.Background(), "chunk")
		assert.ErrorIs(t, err, generation.ErrInvalidResponse)
	})

	t.Run("exhausted retries keep the last error", func(t *testing.T) {
		api := &fakeAPI{embeds: []embedResult{{err: errors.New("googleapi: Error 503: UNAVAILABLE")}}}
		g := newTestGenerator(api)
		g.maxRetries = 1

		_, err := g.EmbedText(context.Background(), "chunk")
		assert.ErrorIs(t, err, generation.ErrTransientFailure)
		assert.Contains(t, err.Error(), "UNAVAILABLE")
		assert.Equal(t, 2, api.calls)
	})
}

func TestBackoffDelay(t *testing.T) {
	base := 2 * time.Second

	assert.Equal(t, time.Second, backoffDelay(base, 0, 0))
	assert.Equal(t, 2*time.Second, backoffDelay(base, 1, 0))
	assert.Equal(t, 4*time.Second, backoffDelay(base, 2, 0))
	assert.Equal(t, 6*time.Second, backoffDelay(base, 2, 0.5))
}

func TestValidateConfig(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	t.Run("valid", func(t *testing.T) {
		cfg, err := validateConfig(ctx, log, testConfig())
		require.NoError(t, err)
		assert.Equal(t, 2, cfg.MaxRetries)
	})

	t.Run("missing fields", func(t *testing.T) {
		for name, mutate := range map[string]func(*config.LLMConfig){
			"api key":         func(c *config.LLMConfig) { c.GeminiAPIKey = "" },
			"model name":      func(c *config.LLMConfig) { c.ModelName = "" },
			"embedding model": func(c *config.LLMConfig) { c.EmbeddingModel = "" },
		} {
			t.Run(name, func(t *testing.T) {
				cfg := testConfig()
				mutate(&cfg)
				_, err := validateConfig(ctx, log, cfg)
				assert.ErrorIs(t, err, generation.ErrInvalidConfig)
			})
		}
	})

	t.Run("normalizes retry settings", func(t *testing.T) {
		in := testConfig()
		in.MaxRetries = -1
		in.RetryDelaySeconds = 0

		cfg, err := validateConfig(ctx, log, in)
		require.NoError(t, err)
		assert.Equal(t, defaultMaxRetries, cfg.MaxRetries)
		assert.Equal(t, defaultRetryDelaySeconds, cfg.RetryDelaySeconds)
	})
}

func TestNewGeneratorRejectsBadInput(t *testing.T) {
	_, err := NewGenerator(context.Background(), nil, testConfig())
	assert.Error(t, err)

	cfg := testConfig()
	cfg.GeminiAPIKey = ""
	_, err = NewGenerator(context.Background(), slog.New(slog.NewTextHandler(io.Discard, nil)), cfg)
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)
}
