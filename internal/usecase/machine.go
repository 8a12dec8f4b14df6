package usecase

import (
	"ai-test-agent/internal/dom"
	"ai-test-agent/internal/entity"
	"ai-test-agent/internal/plan"
	"ai-test-agent/internal/ports"
	"ai-test-agent/pkg/apperr"
	"ai-test-agent/pkg/logg"
	"ai-test-agent/pkg/tracing"
	"context"
	"fmt"
	"slices"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	stepMachineName   = "StepMachine"
	stepMachineTracer = "usecase.step_machine"

	fallbackTitleRunes = 80
)

// StepState is a state of the per-step machine.
type StepState string

const (
	StateContext  StepState = "context"
	StatePlan     StepState = "plan"
	StateValidate StepState = "validate"
	StateExecute  StepState = "execute"
	StateDone     StepState = "done"
)

// transitions lists the states reachable from each state. A rejected plan
// goes back through Context so replanning sees a fresh page. Validate reaches
// Done directly only when a replan limit is configured and exhausted.
var transitions = map[StepState][]StepState{
	StateContext:  {StatePlan},
	StatePlan:     {StateValidate},
	StateValidate: {StateContext, StateExecute, StateDone},
	StateExecute:  {StateDone},
}

// StepMachine drives one test step from context capture to execution.
type StepMachine struct {
	logger      *zap.Logger
	tracer      trace.Tracer
	snapshotter ports.Snapshotter
	planner     ports.Planner
	reviewer    ports.Reviewer
	executor    ports.PlanExecutor
	maxReplans  int
}

type StepMachineParams struct {
	Logger      *zap.Logger
	Snapshotter ports.Snapshotter
	Planner     ports.Planner
	Reviewer    ports.Reviewer
	Executor    ports.PlanExecutor
	// MaxReplans caps rejections per step; 0 means unbounded.
	MaxReplans int
}

func NewStepMachine(params StepMachineParams) *StepMachine {
	return &StepMachine{
		logger:      params.Logger.With(zap.String(logg.Layer, stepMachineName)),
		tracer:      otel.Tracer(stepMachineTracer),
		snapshotter: params.Snapshotter,
		planner:     params.Planner,
		reviewer:    params.Reviewer,
		executor:    params.Executor,
		maxReplans:  params.MaxReplans,
	}
}

// RunStep drives the step at state.CurrentIndex to Done. It does not advance
// CurrentIndex. The step outcome is left in state.CurrentResult.
func (m *StepMachine) RunStep(ctx context.Context, state *entity.RunState) (err error) {
	const op = "RunStep"

	step, ok := state.CurrentStep()
	if !ok {
		return apperr.InvalidReqError(op, "current_index", fmt.Errorf("no step at index %d", state.CurrentIndex))
	}

	logger := m.logger.With(zap.String(logg.Operation, op), zap.String(logg.StepID, step.ID))

	ctx, span := tracing.StartSpan(ctx, m.tracer, logger, op,
		attribute.String("step_id", step.ID),
		attribute.Int("step_index", state.CurrentIndex))
	defer func() {
		span.End(err)
	}()

	state.Replans = 0
	state.CurrentResult = nil

	current := StateContext

	for current != StateDone {
		next, err := m.handle(ctx, current, step, state)
		if err != nil {
			return err
		}

		if !slices.Contains(transitions[current], next) {
			return apperr.Wrap(op, apperr.CodeInternal, fmt.Errorf("illegal transition %s -> %s", current, next), map[string]any{
				apperr.MetaStepID: step.ID,
			})
		}

		logger.Debug("State transition", zap.String("from", string(current)), zap.String("to", string(next)))
		span.AddEvent("transition", attribute.String("from", string(current)), attribute.String("to", string(next)))

		current = next
	}

	return nil
}

func (m *StepMachine) handle(ctx context.Context, current StepState, step entity.TestStep, state *entity.RunState) (StepState, error) {
	switch current {
	case StateContext:
		return m.captureContext(ctx, step, state)
	case StatePlan:
		return m.planStep(ctx, step, state)
	case StateValidate:
		return m.review(ctx, step, state)
	case StateExecute:
		return m.execute(ctx, step, state)
	default:
		return "", apperr.WrapErrorWithReason("handle", apperr.CodeInternal, "unknown_state")
	}
}

func (m *StepMachine) captureContext(ctx context.Context, step entity.TestStep, state *entity.RunState) (StepState, error) {
	logger := m.logger.With(zap.String(logg.State, string(StateContext)), zap.String(logg.StepID, step.ID))

	snap, err := m.snapshotter.Snapshot(ctx)
	if err != nil {
		logger.Warn("Snapshot failed, planning on the last known page state", zap.Error(err))

		if state.LastSnapshot == nil {
			state.LastSnapshot = &entity.Snapshot{}
		}
	} else {
		state.LastSnapshot = snap
	}

	state.Inventory = dom.BuildInventory(state.LastSnapshot.BodyHTML)

	logger.Debug("Context captured", zap.String(logg.URL, state.LastSnapshot.URL), zap.Int("inventory_size", len(state.Inventory)))

	return StatePlan, nil
}

func (m *StepMachine) planStep(ctx context.Context, step entity.TestStep, state *entity.RunState) (StepState, error) {
	logger := m.logger.With(zap.String(logg.State, string(StatePlan)), zap.String(logg.StepID, step.ID))

	title := fallbackTitle(step)

	raw, err := m.planner.PlanStep(ctx, ports.PlanRequest{
		StepID:    step.ID,
		StepTitle: title,
		Given:     step.Given,
		Action:    step.Action,
		Result:    step.ExpectedResult,
		Snapshot:  *state.LastSnapshot,
		Inventory: state.Inventory,
		Hints:     state.PendingHints,
	})
	if err != nil {
		logger.Error("Planner failed, continuing with an empty plan document", zap.Error(err))
		raw = ""
	}

	p := plan.Validate(raw, title, step.ID, state.PendingHints)
	if len(state.PendingHints) > 0 {
		p = plan.Merge(p, state.PendingHints)
	}

	state.CurrentPlan = p
	state.NeedReplan = false

	logger.Info("Plan ready", zap.Int("instructions", len(p.Instructions)), zap.Int("expects", len(p.Expects)))

	return StateValidate, nil
}

func (m *StepMachine) review(ctx context.Context, step entity.TestStep, state *entity.RunState) (StepState, error) {
	const op = "review"
	logger := m.logger.With(zap.String(logg.State, string(StateValidate)), zap.String(logg.StepID, step.ID))

	decision, err := m.reviewer.Review(ctx, step, state.CurrentPlan)
	if err != nil {
		return "", apperr.Wrap(op, apperr.CodeReviewerError, err, map[string]any{
			apperr.MetaStage:  apperr.StageReview,
			apperr.MetaStepID: step.ID,
		})
	}

	if decision.Approved {
		state.NeedReplan = false
		logger.Info("Plan approved")

		return StateExecute, nil
	}

	if m.maxReplans > 0 && state.Replans >= m.maxReplans {
		logger.Warn("Replan limit reached", zap.Int("replans", state.Replans))
		state.CurrentResult = replanLimitResult(state)

		return StateDone, nil
	}

	hints := decision.Hints
	if len(hints) == 0 {
		hints = entity.RejectedWithoutHints()
	}

	state.PendingHints = hints
	state.NeedReplan = true
	state.Replans++

	logger.Info("Plan rejected, replanning", zap.Int("replans", state.Replans), zap.Bool("with_hints", !hints.IsRejectedWithoutHints()))

	return StateContext, nil
}

func (m *StepMachine) execute(ctx context.Context, step entity.TestStep, state *entity.RunState) (StepState, error) {
	logger := m.logger.With(zap.String(logg.State, string(StateExecute)), zap.String(logg.StepID, step.ID))

	result := m.executor.Execute(ctx, state.CurrentPlan)

	state.CurrentResult = result
	state.LastSnapshot = result.Snapshot()
	state.Inventory = dom.BuildInventory(result.BodyHTML)

	logger.Info("Step executed", zap.Bool("ok", result.OK), zap.String(logg.URL, result.URL))

	return StateDone, nil
}

func replanLimitResult(state *entity.RunState) *entity.ExecutionResult {
	res := &entity.ExecutionResult{Logs: []string{}}

	if state.LastSnapshot != nil {
		res.URL, res.Title, res.BodyHTML = state.LastSnapshot.URL, state.LastSnapshot.Title, state.LastSnapshot.BodyHTML
	}

	res.Fail(entity.ExecutionError{
		Code:    apperr.CodeReplanLimit,
		Message: fmt.Sprintf("plan rejected %d times, replan limit reached", state.Replans+1),
		Details: map[string]any{"replans": state.Replans},
	})

	return res
}

func fallbackTitle(step entity.TestStep) string {
	runes := []rune(step.Raw)
	if len(runes) > fallbackTitleRunes {
		runes = runes[:fallbackTitleRunes]
	}

	return string(runes)
}
