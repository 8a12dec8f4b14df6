package usecase

import (
	"ai-test-agent/internal/entity"
	"ai-test-agent/internal/ports"
	"context"
	"errors"
	"fmt"
	"sync"
)

type fakeBrowser struct {
	mu sync.Mutex

	calls   []string
	fail    map[string]error
	hidden  map[string]bool
	texts   map[string]string
	snap    entity.Snapshot
	snapErr error
	snaps   int
}

func newFakeBrowser() *fakeBrowser {
	return &fakeBrowser{
		fail:   map[string]error{},
		hidden: map[string]bool{},
		texts:  map[string]string{},
		snap: entity.Snapshot{
			URL:      "https://example.test/",
			Title:    "Example",
			BodyHTML: `<body><button id="go">Go</button></body>`,
		},
	}
}

func (b *fakeBrowser) record(call string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.calls = append(b.calls, call)

	return b.fail[call]
}

func (b *fakeBrowser) Navigate(_ context.Context, url string, waitUntil entity.WaitFor, _ int) error {
	if err := b.record("navigate " + url); err != nil {
		return err
	}

	b.mu.Lock()
	b.snap.URL = url
	b.mu.Unlock()

	return nil
}

func (b *fakeBrowser) Click(_ context.Context, selector string) error {
	return b.record("click " + selector)
}

func (b *fakeBrowser) Fill(_ context.Context, selector, value string) error {
	return b.record(fmt.Sprintf("fill %s %s", selector, value))
}

func (b *fakeBrowser) WaitForSelector(_ context.Context, selector string, _ int) (bool, error) {
	if err := b.record("wait " + selector); err != nil {
		return false, err
	}

	return !b.hidden[selector], nil
}

func (b *fakeBrowser) WaitForURL(_ context.Context, url string, _ int) error {
	return b.record("waitURL " + url)
}

func (b *fakeBrowser) WaitForLoadState(_ context.Context, state entity.WaitFor, _ int) error {
	return b.record("loadState " + string(state))
}

func (b *fakeBrowser) GetElementText(_ context.Context, selector string) (string, error) {
	if err := b.record("text " + selector); err != nil {
		return "", err
	}

	return b.texts[selector], nil
}

func (b *fakeBrowser) Snapshot(_ context.Context) (*entity.Snapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.snaps++
	if b.snapErr != nil {
		return nil, b.snapErr
	}

	snap := b.snap

	return &snap, nil
}

func (b *fakeBrowser) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return append([]string(nil), b.calls...)
}

// fakePlanner answers with responses in order and repeats the last one.
type fakePlanner struct {
	responses []string
	err       error
	requests  []ports.PlanRequest
}

func (p *fakePlanner) PlanStep(_ context.Context, req ports.PlanRequest) (string, error) {
	p.requests = append(p.requests, req)

	if p.err != nil {
		return "", p.err
	}

	if len(p.responses) == 0 {
		return "{}", nil
	}

	i := min(len(p.requests)-1, len(p.responses)-1)

	return p.responses[i], nil
}

// fakeReviewer consumes decisions in order and approves once they run out.
type fakeReviewer struct {
	decisions []ports.Decision
	reviewErr error
	proceed   bool
	plans     []*entity.StepPlan
	failures  []string
}

func (r *fakeReviewer) Review(_ context.Context, _ entity.TestStep, plan *entity.StepPlan) (ports.Decision, error) {
	r.plans = append(r.plans, plan)

	if r.reviewErr != nil {
		return ports.Decision{}, r.reviewErr
	}

	if len(r.decisions) == 0 {
		return ports.Decision{Approved: true}, nil
	}

	d := r.decisions[0]
	r.decisions = r.decisions[1:]

	return d, nil
}

func (r *fakeReviewer) ContinueAfterFailure(_ context.Context, step entity.TestStep, _ *entity.ExecutionResult) (bool, error) {
	r.failures = append(r.failures, step.ID)

	return r.proceed, nil
}

type fakeExecutor struct {
	plans  []*entity.StepPlan
	result *entity.ExecutionResult
}

func (e *fakeExecutor) Execute(_ context.Context, plan *entity.StepPlan) *entity.ExecutionResult {
	e.plans = append(e.plans, plan)

	if e.result != nil {
		return e.result
	}

	return &entity.ExecutionResult{OK: true, Errors: []entity.ExecutionError{}, Logs: []string{}, URL: "https://example.test/done"}
}

type fakeReporter struct {
	steps    []string
	results  []*entity.ExecutionResult
	finished []*entity.RunState
}

func (r *fakeReporter) StepFinished(step entity.TestStep, result *entity.ExecutionResult) {
	r.steps = append(r.steps, step.ID)
	r.results = append(r.results, result)
}

func (r *fakeReporter) RunFinished(state *entity.RunState) {
	r.finished = append(r.finished, state)
}

var errBoom = errors.New("boom")
