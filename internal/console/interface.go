package console

import (
	"ai-test-agent/internal/config"
	"ai-test-agent/internal/entity"
	"ai-test-agent/internal/plan"
	"ai-test-agent/internal/ports"
	"ai-test-agent/pkg/apperr"
	"ai-test-agent/pkg/logg"
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	consoleName = "Console"

	detailLimit = 180
)

// Interface is the terminal reviewer: it previews plans, collects approvals
// and hints, and prints step results.
type Interface struct {
	logger      *zap.Logger
	out         io.Writer
	styles      styles
	autoApprove bool

	in       *bufio.Reader
	readOnce sync.Once
	lines    chan string
	// readErr is set before lines is closed.
	readErr error

	done     chan struct{}
	stopOnce sync.Once
}

var errStopped = errors.New("console stopped")

type Params struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    *config.Config
	Logger    *zap.Logger
}

func NewInterface(params Params) *Interface {
	autoApprove := params.Config.RunConfig != nil && params.Config.RunConfig.AutoApprove

	i := newInterface(params.Logger, os.Stdin, os.Stdout, autoApprove)

	params.Lifecycle.Append(fx.Hook{
		OnStop: func(context.Context) error {
			i.Stop()

			return nil
		},
	})

	return i
}

func newInterface(logger *zap.Logger, in io.Reader, out io.Writer, autoApprove bool) *Interface {
	return &Interface{
		logger:      logger.With(zap.String(logg.Layer, consoleName)),
		out:         out,
		styles:      newStyles(out),
		autoApprove: autoApprove,
		in:          bufio.NewReader(in),
		lines:       make(chan string),
		done:        make(chan struct{}),
	}
}

// Stop ends pending and future prompts. The input reader exits once its
// current read returns.
func (i *Interface) Stop() {
	i.stopOnce.Do(func() {
		close(i.done)
	})
}

var (
	_ ports.Reviewer = (*Interface)(nil)
	_ ports.Reporter = (*Interface)(nil)
)

func (i *Interface) Review(ctx context.Context, step entity.TestStep, p *entity.StepPlan) (ports.Decision, error) {
	const op = "Review"
	logger := i.logger.With(zap.String(logg.Operation, op), zap.String(logg.StepID, step.ID))

	i.printPlan(p)

	if i.autoApprove {
		i.println(i.styles.muted.Render("Шаг одобрен автоматически."))
		logger.Debug("Plan auto-approved")

		return ports.Decision{Approved: true}, nil
	}

	answer, err := i.ask(ctx, "Одобрить этот шаг? [y/n]: ")
	if err != nil {
		return ports.Decision{}, apperr.Wrap(op, apperr.CodeReviewerError, err, map[string]any{
			apperr.MetaStage:  apperr.StageReview,
			apperr.MetaStepID: step.ID,
		})
	}

	if isYes(answer) {
		return ports.Decision{Approved: true}, nil
	}

	hints, err := i.collectHints(ctx)
	if err != nil {
		return ports.Decision{}, apperr.Wrap(op, apperr.CodeReviewerError, err, map[string]any{
			apperr.MetaStage:  apperr.StageReview,
			apperr.MetaStepID: step.ID,
		})
	}

	logger.Info("Plan rejected", zap.Bool("with_hints", hints != nil))

	return ports.Decision{Approved: false, Hints: hints}, nil
}

func (i *Interface) ContinueAfterFailure(ctx context.Context, step entity.TestStep, _ *entity.ExecutionResult) (bool, error) {
	const op = "ContinueAfterFailure"

	if i.autoApprove {
		return true, nil
	}

	answer, err := i.ask(ctx, "Шаг завершился с ошибками. Продолжить к следующему шагу? [y/n]: ")
	if err != nil {
		return false, apperr.Wrap(op, apperr.CodeReviewerError, err, map[string]any{
			apperr.MetaStage:  apperr.StageReview,
			apperr.MetaStepID: step.ID,
		})
	}

	if isYes(answer) {
		return true, nil
	}

	i.println(i.styles.warn.Render("Остановлено по запросу пользователя."))

	return false, nil
}

func (i *Interface) collectHints(ctx context.Context) (entity.Hints, error) {
	i.println("")
	i.println("Хотите указать верный селектор или поправить последовательность?")
	i.println("Введите подсказки в JSON или нажмите Enter, чтобы пропустить.")
	i.println("Примеры:")
	i.println(i.styles.muted.Render(`  {"selector_override": {"instructionIndex": 1, "selector": {"type":"css","value":"[class^=\"btn_primary\"]"}}}`))
	i.println(i.styles.muted.Render(`  {"prepend_instructions": [{"action":"click","target":{"selector":{"type":"text","value":"Меню"}}}]}`))

	raw, err := i.ask(ctx, "> ")
	if err != nil {
		return nil, err
	}

	if raw == "" {
		return nil, nil
	}

	hints, ok := plan.ParseHints(raw)
	if !ok {
		i.println(i.styles.fail.Render("Не получилось разобрать JSON, подсказки пропущены."))

		return nil, nil
	}

	return hints, nil
}

// ask prints prompt and waits for one line of input. A closed input stream
// is an error; cancellation of ctx abandons the wait.
func (i *Interface) ask(ctx context.Context, prompt string) (string, error) {
	if i.stopped() {
		return "", apperr.WrapWithReason("ask", apperr.CodeReviewerError, errStopped, "console_stopped")
	}

	i.readOnce.Do(func() {
		go i.readLines()
	})

	fmt.Fprint(i.out, prompt)

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-i.done:
		return "", apperr.WrapWithReason("ask", apperr.CodeReviewerError, errStopped, "console_stopped")
	case line, ok := <-i.lines:
		if !ok {
			return "", apperr.WrapWithReason("ask", apperr.CodeReviewerError, i.readErr, "input_closed")
		}

		return strings.TrimSpace(line), nil
	}
}

func (i *Interface) readLines() {
	defer close(i.lines)

	for {
		line, err := i.in.ReadString('\n')
		if i.stopped() {
			i.readErr = errStopped

			return
		}

		if line != "" {
			select {
			case i.lines <- line:
			case <-i.done:
				i.readErr = errStopped

				return
			}
		}

		if err != nil {
			i.readErr = err

			return
		}
	}
}

func (i *Interface) stopped() bool {
	select {
	case <-i.done:
		return true
	default:
		return false
	}
}

func (i *Interface) println(s string) {
	fmt.Fprintln(i.out, s)
}

func isYes(answer string) bool {
	switch strings.ToLower(answer) {
	case "y", "yes", "":
		return true
	default:
		return false
	}
}
