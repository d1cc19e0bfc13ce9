package aitask

import (
	"bytes"
	"context"
	"fmt"
	"text/template"

	"github.com/phrazzld/marketing-jobs/internal/generation"
	"github.com/phrazzld/marketing-jobs/internal/task"
)

const contentPrompt = `You are a marketing copywriter.
Write {{.Channel}} copy about "{{.Topic}}" for {{.Audience}}.
Use a {{.Tone}} tone. Return only the copy.`

var contentTemplate = template.Must(template.New("content").Parse(contentPrompt))

type contentBrief struct {
	Topic    string
	Audience string
	Tone     string
	Channel  string
}

// ContentDraft is the result of a content generation task.
type ContentDraft struct {
	Topic   string `json:"topic"`
	Channel string `json:"channel"`
	Content string `json:"content"`
}

// ContentGenerator drafts marketing copy from a brief.
type ContentGenerator struct {
	gen generation.Generator
}

// NewContentGenerator creates a ContentGenerator that uses gen.
func NewContentGenerator(gen generation.Generator) *ContentGenerator {
	return &ContentGenerator{gen: gen}
}

// Execute implements task.Executor.
func (c *ContentGenerator) Execute(ctx context.Context, params map[string]any, progress task.ProgressReporter) (any, error) {
	topic, err := requiredString(params, "topic")
	if err != nil {
		return nil, err
	}
	brief := contentBrief{
		Topic:    topic,
		Audience: optionalString(params, "audience", "a general audience"),
		Tone:     optionalString(params, "tone", "friendly"),
		Channel:  optionalString(params, "channel", "email"),
	}

	var prompt bytes.Buffer
	if err := contentTemplate.Execute(&prompt, brief); err != nil {
		return nil, fmt.Errorf("failed to render prompt: %w", err)
	}
	if err := progress.Report(10, "prompt prepared"); err != nil {
		return nil, err
	}

	text, err := c.gen.GenerateText(ctx, prompt.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", generation.ErrGenerationFailed, err)
	}
	if err := progress.Report(90, "content generated"); err != nil {
		return nil, err
	}

	return ContentDraft{Topic: brief.Topic, Channel: brief.Channel, Content: text}, nil
}
