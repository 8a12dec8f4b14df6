package usecase

import (
	"ai-test-agent/internal/entity"
	"ai-test-agent/internal/ports"
	"ai-test-agent/internal/script"
	"ai-test-agent/pkg/apperr"
	"ai-test-agent/pkg/logg"
	"ai-test-agent/pkg/tracing"
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	runnerName   = "Runner"
	runnerTracer = "usecase.runner"
)

// Runner walks a script step by step through the step machine.
type Runner struct {
	logger   *zap.Logger
	tracer   trace.Tracer
	machine  *StepMachine
	reviewer ports.Reviewer
	reporter ports.Reporter
}

type RunnerParams struct {
	Logger   *zap.Logger
	Machine  *StepMachine
	Reviewer ports.Reviewer
	Reporter ports.Reporter
}

func NewRunner(params RunnerParams) *Runner {
	return &Runner{
		logger:   params.Logger.With(zap.String(logg.Layer, runnerName)),
		tracer:   otel.Tracer(runnerTracer),
		machine:  params.Machine,
		reviewer: params.Reviewer,
		reporter: params.Reporter,
	}
}

// RunScript tokenizes text and runs its steps.
func (r *Runner) RunScript(ctx context.Context, text string) (*entity.RunState, error) {
	return r.Run(ctx, script.Parse(text))
}

// Run executes steps in order. CurrentIndex advances after every step
// whatever its outcome; after a failed step the reviewer decides whether
// the run continues.
func (r *Runner) Run(ctx context.Context, steps []entity.TestStep) (state *entity.RunState, err error) {
	const op = "Run"

	state = entity.NewRunState(steps)
	logger := r.logger.With(zap.String(logg.Operation, op), zap.String(logg.RunID, state.RunID.String()))

	ctx, span := tracing.StartSpan(ctx, r.tracer, logger, op,
		attribute.String("run_id", state.RunID.String()),
		attribute.Int("steps", len(steps)))
	defer func() {
		span.End(err)
	}()

	if len(steps) == 0 {
		logger.Warn("Script contains no steps")
		r.reporter.RunFinished(state)

		return state, nil
	}

	logger.Info("Run started", zap.Int("steps", len(steps)))

	for !state.Finished() {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return state, apperr.Wrap(op, apperr.CodeInternal, ctxErr, map[string]any{
				apperr.MetaReason: "context_cancelled",
			})
		}

		step, _ := state.CurrentStep()

		if err := r.machine.RunStep(ctx, state); err != nil {
			logger.Error("Step aborted", zap.String(logg.StepID, step.ID), zap.Error(err))

			return state, err
		}

		state.CurrentIndex++
		result := state.CurrentResult

		r.reporter.StepFinished(step, result)

		if result.OK {
			continue
		}

		proceed, err := r.reviewer.ContinueAfterFailure(ctx, step, result)
		if err != nil {
			return state, apperr.Wrap(op, apperr.CodeReviewerError, err, map[string]any{
				apperr.MetaStage:  apperr.StageReview,
				apperr.MetaStepID: step.ID,
			})
		}

		if !proceed {
			logger.Info("Run stopped by reviewer", zap.String(logg.StepID, step.ID))
			state.Stopped = true

			break
		}
	}

	r.reporter.RunFinished(state)
	logger.Info("Run finished", zap.Int("completed_steps", state.CurrentIndex), zap.Bool("stopped", state.Stopped))

	return state, nil
}
