package steps

import (
	"context"

	"github.com/specloop/specloop/internal/orchestrator"
)

// NoopStep is a step that does nothing (useful for testing and for
// reserving a slot in a pipeline before its command exists).
type NoopStep struct {
	StepName string
}

func (s *NoopStep) Name() string { return s.StepName }

func (s *NoopStep) Run(ctx context.Context, rc *orchestrator.RunContext) (orchestrator.Result, error) {
	return orchestrator.Success(nil), nil
}
