package aitask

import (
	"context"
	"errors"
	"sync"
)

// fakeGenerator returns canned output and records its inputs.
type fakeGenerator struct {
	mu      sync.Mutex
	text    string
	vector  []float32
	err     error
	prompts []string
	embeds  []string
}

func (f *fakeGenerator) GenerateText(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	return f.text, f.err
}

func (f *fakeGenerator) EmbedText(ctx context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.embeds = append(f.embeds, text)
	return f.vector, f.err
}

type progressUpdate struct {
	percent int
	message string
}

// recordingReporter stores every update and fails once cancelAfter updates
// have been made (0 disables).
type recordingReporter struct {
	updates     []progressUpdate
	cancelAfter int
}

func (r *recordingReporter) Report(percent int, message string) error {
	if r.cancelAfter > 0 && len(r.updates) >= r.cancelAfter {
		return context.Canceled
	}
	r.updates = append(r.updates, progressUpdate{percent, message})
	return nil
}

func (r *recordingReporter) percents() []int {
	out := make([]int, len(r.updates))
	for i, u := range r.updates {
		out[i] = u.percent
	}
	return out
}

var errGenerator = errors.New("model unavailable")
