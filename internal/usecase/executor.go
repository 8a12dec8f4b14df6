package usecase

import (
	"ai-test-agent/internal/entity"
	"ai-test-agent/internal/ports"
	"ai-test-agent/pkg/apperr"
	"ai-test-agent/pkg/logg"
	"ai-test-agent/pkg/tracing"
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	executorName   = "Executor"
	executorTracer = "usecase.executor"

	maskedValue = "***"
)

// Executor runs plan instructions in order and stops at the first failure.
type Executor struct {
	logger      *zap.Logger
	tracer      trace.Tracer
	browser     ports.Browser
	snapshotter ports.Snapshotter
}

type ExecutorParams struct {
	fx.In

	Logger      *zap.Logger
	Browser     ports.Browser
	Snapshotter ports.Snapshotter
}

func NewExecutor(params ExecutorParams) *Executor {
	return &Executor{
		logger:      params.Logger.With(zap.String(logg.Layer, executorName)),
		tracer:      otel.Tracer(executorTracer),
		browser:     params.Browser,
		snapshotter: params.Snapshotter,
	}
}

// Execute never returns an error: the first failing instruction is recorded
// as the result's single runtime error. A final snapshot of the page is
// attached to the result in every case.
func (e *Executor) Execute(ctx context.Context, plan *entity.StepPlan) *entity.ExecutionResult {
	const op = "Execute"
	logger := e.logger.With(zap.String(logg.Operation, op), zap.String(logg.StepID, plan.StepID))

	ctx, step := tracing.StartSpan(ctx, e.tracer, logger, op,
		attribute.String("step_id", plan.StepID),
		attribute.Int("instructions", len(plan.Instructions)))

	res := &entity.ExecutionResult{
		OK:     true,
		Errors: []entity.ExecutionError{},
		Logs:   []string{},
	}

	var failure error

	for i, ins := range plan.Instructions {
		line := describeInstruction(i, ins)

		skipped, err := e.executeInstruction(ctx, ins)
		if err != nil {
			logger.Warn("Instruction failed", zap.Int(logg.Index, i), zap.String(logg.Action, string(ins.Action)), zap.Error(err))
			res.Logs = append(res.Logs, line+" -> failed")
			res.Fail(runtimeError(i, ins, err))
			failure = err

			break
		}

		if skipped {
			logger.Warn("Instruction skipped, required field missing", zap.Int(logg.Index, i), zap.String(logg.Action, string(ins.Action)))
			res.Logs = append(res.Logs, line+" -> skipped")

			continue
		}

		res.Logs = append(res.Logs, line+" -> ok")
	}

	step.AddEvent("taking final snapshot")

	snap, err := e.snapshotter.Snapshot(ctx)
	switch {
	case err == nil:
		res.URL, res.Title, res.BodyHTML = snap.URL, snap.Title, snap.BodyHTML
	case res.OK:
		res.Fail(runtimeError(-1, entity.Instruction{}, err))
		failure = err
	default:
		res.Logs = append(res.Logs, "final snapshot failed: "+err.Error())
	}

	step.End(failure)

	return res
}

// executeInstruction reports skipped when the instruction lacks the field its
// action needs.
func (e *Executor) executeInstruction(ctx context.Context, ins entity.Instruction) (skipped bool, err error) {
	const op = "executeInstruction"

	timeout := 0
	if ins.Wait != nil {
		timeout = ins.Wait.TimeoutMs
	}

	sel, hasTarget := ins.PrimarySelector()
	query := sel.Query()

	switch ins.Action {
	case entity.ActionNavigate:
		url := entity.Deref(ins.URL)
		if url == "" {
			return true, nil
		}

		waitUntil := entity.WaitForDOMContentLoaded
		if ins.Wait != nil {
			waitUntil = ins.Wait.For
		}

		err = e.browser.Navigate(ctx, url, waitUntil, timeout)
	case entity.ActionClick:
		if !hasTarget {
			return true, nil
		}

		err = e.browser.Click(ctx, query)
	case entity.ActionFill:
		if !hasTarget {
			return true, nil
		}

		err = e.browser.Fill(ctx, query, entity.Deref(ins.Value))
	case entity.ActionWaitForSelector:
		if !hasTarget {
			return true, nil
		}

		_, err = e.browser.WaitForSelector(ctx, query, timeout)
	case entity.ActionAssertVisible:
		if !hasTarget {
			return true, nil
		}

		var found bool

		found, err = e.browser.WaitForSelector(ctx, query, timeout)
		if err == nil && !found {
			err = apperr.Wrap(op, apperr.CodeAssertionFailed, fmt.Errorf("element not visible: %s", query), map[string]any{
				apperr.MetaStage:    apperr.StageAssertion,
				apperr.MetaSelector: query,
			})
		}
	case entity.ActionWaitForURL:
		url := entity.Deref(ins.URL)
		if url == "" {
			url = entity.Deref(ins.Value)
		}
		if url == "" {
			return true, nil
		}

		err = e.browser.WaitForURL(ctx, url, timeout)
	case entity.ActionAssertText:
		if !hasTarget {
			return true, nil
		}

		err = e.assertText(ctx, query, entity.Deref(ins.Value))
	default:
		return false, apperr.InvalidReqError(op, "action", fmt.Errorf("unknown action %q", ins.Action))
	}

	if err != nil {
		return false, err
	}

	if ins.WaitAfter != nil {
		err = e.browser.WaitForLoadState(ctx, ins.WaitAfter.For, ins.WaitAfter.TimeoutMs)
	}

	return false, err
}

func (e *Executor) assertText(ctx context.Context, query, want string) error {
	const op = "assertText"

	text, err := e.browser.GetElementText(ctx, query)
	if err != nil {
		return err
	}

	if !strings.Contains(text, want) {
		return apperr.Wrap(op, apperr.CodeAssertionFailed, fmt.Errorf("text %q not found in %s", want, query), map[string]any{
			apperr.MetaStage:    apperr.StageAssertion,
			apperr.MetaSelector: query,
			"actual":            text,
		})
	}

	return nil
}

// runtimeError builds the single error of a failed result. index is -1 when
// the failure did not come from an instruction.
func runtimeError(index int, ins entity.Instruction, err error) entity.ExecutionError {
	details := apperr.Metadata(err)
	details["trace"] = errorTrace(err)

	if index >= 0 {
		details[apperr.MetaIndex] = index
		details[apperr.MetaAction] = string(ins.Action)

		if sel, ok := ins.PrimarySelector(); ok {
			details[apperr.MetaSelector] = sel.Query()
		}

		if ins.URL != nil {
			details[apperr.MetaURL] = *ins.URL
		}
	}

	if code := apperr.CodeOf(err); code != "" {
		details["cause_code"] = code
	}

	return entity.ExecutionError{
		Code:    entity.ErrorCodeRuntime,
		Message: err.Error(),
		Details: details,
	}
}

// errorTrace lists every layer of the error chain followed by the stack of
// the goroutine that observed the failure.
func errorTrace(err error) string {
	var sb strings.Builder

	for depth := 0; err != nil; depth++ {
		fmt.Fprintf(&sb, "%s%T: %v\n", strings.Repeat("  ", depth), err, err)
		err = errors.Unwrap(err)
	}

	sb.Write(debug.Stack())

	return sb.String()
}

func describeInstruction(i int, ins entity.Instruction) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "[%d] %s", i, ins.Action)

	if ins.URL != nil {
		fmt.Fprintf(&sb, " url=%s", *ins.URL)
	}

	if sel, ok := ins.PrimarySelector(); ok {
		fmt.Fprintf(&sb, " target=(%s)", sel)
	}

	if ins.Value != nil {
		value := *ins.Value
		if ins.Masking {
			value = maskedValue
		}
		fmt.Fprintf(&sb, " value=%q", value)
	}

	return sb.String()
}
