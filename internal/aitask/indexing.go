package aitask

import (
	"context"
	"fmt"
	"strings"

	"github.com/phrazzld/marketing-jobs/internal/generation"
	"github.com/phrazzld/marketing-jobs/internal/task"
	"github.com/spf13/cast"
)

// DefaultChunkSize is the number of words per chunk when chunk_size is unset.
const DefaultChunkSize = 200

// IndexSummary is the result of a knowledge indexing task.
type IndexSummary struct {
	Documents  int `json:"documents"`
	Chunks     int `json:"chunks"`
	Dimensions int `json:"dimensions"`
}

// KnowledgeIndexer splits documents into chunks and embeds each one.
type KnowledgeIndexer struct {
	gen generation.Generator
}

// NewKnowledgeIndexer creates a KnowledgeIndexer that uses gen.
func NewKnowledgeIndexer(gen generation.Generator) *KnowledgeIndexer {
	return &KnowledgeIndexer{gen: gen}
}

// Execute implements task.Executor.
func (k *KnowledgeIndexer) Execute(ctx context.Context, params map[string]any, progress task.ProgressReporter) (any, error) {
	docs, err := cast.ToStringSliceE(params["documents"])
	if err != nil || len(docs) == 0 {
		return nil, fmt.Errorf("%w: documents must be a non-empty list of strings", ErrInvalidParameters)
	}
	size, err := positiveInt(params, "chunk_size", DefaultChunkSize)
	if err != nil {
		return nil, err
	}

	var chunks []string
	for _, doc := range docs {
		chunks = append(chunks, chunkWords(doc, size)...)
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: documents contain no text", ErrInvalidParameters)
	}

	summary := IndexSummary{Documents: len(docs), Chunks: len(chunks)}
	for i, chunk := range chunks {
		vec, err := k.gen.EmbedText(ctx, chunk)
		if err != nil {
			return nil, fmt.Errorf("embedding chunk %d: %w", i, err)
		}
		summary.Dimensions = len(vec)

		done := i + 1
		if err := progress.Report(done*100/len(chunks), fmt.Sprintf("embedded %d/%d chunks", done, len(chunks))); err != nil {
			return nil, err
		}
	}

	return summary, nil
}

// chunkWords splits text into chunks of at most size words.
func chunkWords(text string, size int) []string {
	words := strings.Fields(text)
	var chunks []string
	for start := 0; start < len(words); start += size {
		end := min(start+size, len(words))
		chunks = append(chunks, strings.Join(words[start:end], " "))
	}
	return chunks
}
