package aitask

import (
	"github.com/phrazzld/marketing-jobs/internal/generation"
	"github.com/phrazzld/marketing-jobs/internal/task"
)

// Register adds the executors to reg. The generator-backed task types are
// only registered when gen is non-nil.
func Register(reg *task.Registry, gen generation.Generator) error {
	if err := reg.Register(task.TypeAnalytics, NewAnalytics()); err != nil {
		return err
	}
	if gen == nil {
		return nil
	}
	if err := reg.Register(task.TypeContentGeneration, NewContentGenerator(gen)); err != nil {
		return err
	}
	return reg.Register(task.TypeKnowledgeIndexing, NewKnowledgeIndexer(gen))
}
