package ports

import (
	"ai-test-agent/internal/entity"
	"context"
)

// Browser is the capability surface instructions are executed against.
// Selectors are playwright selector strings, timeouts are milliseconds.
type Browser interface {
	Navigate(ctx context.Context, url string, waitUntil entity.WaitFor, timeout int) error
	Click(ctx context.Context, selector string) error
	Fill(ctx context.Context, selector string, value string) error
	// WaitForSelector reports whether a handle was resolved.
	WaitForSelector(ctx context.Context, selector string, timeout int) (bool, error)
	WaitForURL(ctx context.Context, url string, timeout int) error
	WaitForLoadState(ctx context.Context, state entity.WaitFor, timeout int) error
	GetElementText(ctx context.Context, selector string) (string, error)
}

type Snapshotter interface {
	Snapshot(ctx context.Context) (*entity.Snapshot, error)
}

type BrowserManager interface {
	Browser
	Snapshotter
	Launch(ctx context.Context) error
	Close(ctx context.Context) error
	IsReady() bool
}

// PlanRequest carries everything the planning service grounds a plan on.
type PlanRequest struct {
	StepID    string
	StepTitle string
	Given     string
	Action    string
	Result    string
	Snapshot  entity.Snapshot
	Inventory []entity.DomElement
	Hints     entity.Hints
}

// Planner returns the raw plan document for one step.
type Planner interface {
	PlanStep(ctx context.Context, req PlanRequest) (string, error)
}

type Decision struct {
	Approved bool
	// Hints is nil when the reviewer gave no usable guidance.
	Hints entity.Hints
}

// Reviewer is the suspend/resume boundary of the step machine.
type Reviewer interface {
	Review(ctx context.Context, step entity.TestStep, plan *entity.StepPlan) (Decision, error)
	ContinueAfterFailure(ctx context.Context, step entity.TestStep, result *entity.ExecutionResult) (bool, error)
}

type Reporter interface {
	StepFinished(step entity.TestStep, result *entity.ExecutionResult)
	RunFinished(state *entity.RunState)
}

type PlanExecutor interface {
	Execute(ctx context.Context, plan *entity.StepPlan) *entity.ExecutionResult
}
