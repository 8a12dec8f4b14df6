package usecase

import (
	"ai-test-agent/internal/entity"
	"ai-test-agent/pkg/apperr"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const navigatePlan = `{"stepId":"1","title":"Open","instructions":[{"action":"navigate","url":"https://example.test/start","wait":{"for":"domcontentloaded"}}],"expects":[{"kind":"urlIncludes","value":"/start"}]}`

type runnerFixture struct {
	browser  *fakeBrowser
	planner  *fakePlanner
	reviewer *fakeReviewer
	reporter *fakeReporter
	runner   *Runner
}

func newRunnerFixture(responses ...string) *runnerFixture {
	f := &runnerFixture{
		browser:  newFakeBrowser(),
		planner:  &fakePlanner{responses: responses},
		reviewer: &fakeReviewer{},
		reporter: &fakeReporter{},
	}

	logger := zap.NewNop()

	executor := NewExecutor(ExecutorParams{
		Logger:      logger,
		Browser:     f.browser,
		Snapshotter: f.browser,
	})

	machine := NewStepMachine(StepMachineParams{
		Logger:      logger,
		Snapshotter: f.browser,
		Planner:     f.planner,
		Reviewer:    f.reviewer,
		Executor:    executor,
	})

	f.runner = NewRunner(RunnerParams{
		Logger:   logger,
		Machine:  machine,
		Reviewer: f.reviewer,
		Reporter: f.reporter,
	})

	return f
}

func TestRunner_SingleStepEndToEnd(t *testing.T) {
	f := newRunnerFixture(navigatePlan)

	state, err := f.runner.RunScript(context.Background(), "1. Что сделать: Открыть страницу. Результат: Страница открыта.")

	require.NoError(t, err)
	assert.Equal(t, 1, state.CurrentIndex)
	assert.True(t, state.Finished())
	assert.False(t, state.Stopped)
	require.NotNil(t, state.CurrentResult)
	assert.True(t, state.CurrentResult.OK)
	assert.Equal(t, "https://example.test/start", state.CurrentResult.URL)

	require.Len(t, f.planner.requests, 1)
	assert.Equal(t, "Открыть страницу.", f.planner.requests[0].Action)
	assert.Equal(t, "Страница открыта.", f.planner.requests[0].Result)

	assert.Equal(t, []string{"navigate https://example.test/start"}, f.browser.Calls())
	assert.Equal(t, []string{"1"}, f.reporter.steps)
	assert.Len(t, f.reporter.finished, 1)
	assert.Empty(t, f.reviewer.failures)
}

func TestRunner_StopsWhenReviewerDeclinesAfterFailure(t *testing.T) {
	f := newRunnerFixture(clickPlan)
	f.browser.fail["click #go"] = errBoom

	state, err := f.runner.RunScript(context.Background(), "1. Что сделать: Нажать. Результат: Ок.\n2. Что сделать: Снова. Результат: Ок.")

	require.NoError(t, err)
	assert.True(t, state.Stopped)
	assert.Equal(t, 1, state.CurrentIndex)
	assert.False(t, state.Finished())
	assert.Equal(t, []string{"1"}, f.reviewer.failures)
	assert.Equal(t, []string{"1"}, f.reporter.steps)
	assert.Len(t, f.reporter.finished, 1)
	assert.Len(t, f.planner.requests, 1)
}

func TestRunner_ContinuesWhenReviewerAllowsAfterFailure(t *testing.T) {
	f := newRunnerFixture(clickPlan)
	f.browser.fail["click #go"] = errBoom
	f.reviewer.proceed = true

	state, err := f.runner.RunScript(context.Background(), "1. Что сделать: Нажать. Результат: Ок.\n2. Что сделать: Снова. Результат: Ок.")

	require.NoError(t, err)
	assert.False(t, state.Stopped)
	assert.Equal(t, 2, state.CurrentIndex)
	assert.Equal(t, []string{"1", "2"}, f.reviewer.failures)
	assert.Equal(t, []string{"1", "2"}, f.reporter.steps)
	require.Len(t, f.reporter.results, 2)
	assert.False(t, f.reporter.results[0].OK)
}

func TestRunner_RepairedPlanTakesScriptStepID(t *testing.T) {
	f := newRunnerFixture(`{"stepId":"1","instructions":[]}`)

	state, err := f.runner.RunScript(context.Background(), "5. Что сделать: Открыть. Результат: Открыто.")

	require.NoError(t, err)
	require.NotNil(t, state.CurrentPlan)
	assert.Equal(t, "5", state.CurrentPlan.StepID)
	assert.Equal(t, "Что сделать: Открыть. Результат: Открыто.", state.CurrentPlan.Title)
	assert.True(t, state.CurrentResult.OK)
}

func TestRunner_EmptyScript(t *testing.T) {
	f := newRunnerFixture()

	state, err := f.runner.RunScript(context.Background(), "nothing numbered")

	require.NoError(t, err)
	assert.Empty(t, state.Steps)
	assert.Equal(t, 0, state.CurrentIndex)
	assert.Len(t, f.reporter.finished, 1)
	assert.Empty(t, f.planner.requests)
}

func TestRunner_CancelledContext(t *testing.T) {
	f := newRunnerFixture(navigatePlan)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	state, err := f.runner.Run(ctx, []entity.TestStep{{ID: "1", Raw: "x"}})

	require.Error(t, err)
	assert.Equal(t, apperr.CodeInternal, apperr.CodeOf(err))
	assert.Equal(t, 0, state.CurrentIndex)
	assert.Empty(t, f.planner.requests)
}
