package adapters

import (
	"ai-test-agent/internal/entity"
	"context"
)

type BrowserService interface {
	Launch(ctx context.Context) error
	Close(ctx context.Context) error
	IsReady() bool
}

type ExecutorService interface {
	Execute(ctx context.Context, plan *entity.StepPlan) *entity.ExecutionResult
}

type RunnerService interface {
	RunScript(ctx context.Context, text string) (*entity.RunState, error)
	Run(ctx context.Context, steps []entity.TestStep) (*entity.RunState, error)
}
