package entity

import "github.com/google/uuid"

// RunState is the orchestration state of one script run.
type RunState struct {
	RunID         uuid.UUID
	Steps         []TestStep
	CurrentIndex  int
	LastSnapshot  *Snapshot
	Inventory     []DomElement
	CurrentPlan   *StepPlan
	CurrentResult *ExecutionResult
	PendingHints  Hints
	NeedReplan    bool
	// Replans counts rejections of the step in progress.
	Replans int
	// Stopped is set when the reviewer declined to continue after a failure.
	Stopped bool
}

func NewRunState(steps []TestStep) *RunState {
	return &RunState{
		RunID: uuid.New(),
		Steps: steps,
	}
}

func (s *RunState) CurrentStep() (TestStep, bool) {
	if s.CurrentIndex < 0 || s.CurrentIndex >= len(s.Steps) {
		return TestStep{}, false
	}

	return s.Steps[s.CurrentIndex], true
}

func (s *RunState) Finished() bool {
	return s.CurrentIndex >= len(s.Steps)
}
