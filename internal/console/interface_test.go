package console

import (
	"ai-test-agent/internal/entity"
	"ai-test-agent/pkg/apperr"
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestInterface(input string, autoApprove bool) (*Interface, *bytes.Buffer) {
	out := &bytes.Buffer{}

	return newInterface(zap.NewNop(), strings.NewReader(input), out, autoApprove), out
}

func samplePlan() *entity.StepPlan {
	return &entity.StepPlan{
		StepID: "1",
		Title:  "Войти",
		Instructions: []entity.Instruction{
			{Action: entity.ActionNavigate, URL: entity.StringPtr("https://example.test/")},
			{
				Action: entity.ActionFill,
				Target: &entity.Target{
					Selector:     entity.Selector{Type: entity.SelectorPlaceholder, Value: "Пароль"},
					Alternatives: []entity.Selector{{Type: entity.SelectorCSS, Value: "#pwd"}},
				},
				Value:   entity.StringPtr("s3cret"),
				Masking: true,
			},
		},
		Expects: []entity.Expectation{{Kind: entity.ExpectURLIncludes, Value: entity.StringPtr("/home")}},
	}
}

func TestReview_ApproveVariants(t *testing.T) {
	for _, answer := range []string{"y", "YES", "", "  y  "} {
		t.Run(answer, func(t *testing.T) {
			ui, out := newTestInterface(answer+"\n", false)

			d, err := ui.Review(context.Background(), entity.TestStep{ID: "1"}, samplePlan())

			require.NoError(t, err)
			assert.True(t, d.Approved)
			assert.Nil(t, d.Hints)
			assert.Contains(t, out.String(), "Предпросмотр шага")
			assert.Contains(t, out.String(), "Одобрить этот шаг?")
		})
	}
}

func TestReview_PreviewMasksSecrets(t *testing.T) {
	ui, out := newTestInterface("y\n", false)

	_, err := ui.Review(context.Background(), entity.TestStep{ID: "1"}, samplePlan())
	require.NoError(t, err)

	text := out.String()
	assert.NotContains(t, text, "s3cret")
	assert.Contains(t, text, "action=navigate url=https://example.test/")
	assert.Contains(t, text, "target=(placeholder='Пароль') alts=[css:#pwd...]")
	assert.Contains(t, text, "urlIncludes value=/home")
}

func TestReview_RejectWithHints(t *testing.T) {
	ui, _ := newTestInterface("n\n{\"note\":\"use the menu\"}\n", false)

	d, err := ui.Review(context.Background(), entity.TestStep{ID: "1"}, samplePlan())

	require.NoError(t, err)
	assert.False(t, d.Approved)
	assert.Equal(t, entity.Hints{"note": "use the menu"}, d.Hints)
}

func TestReview_RejectWithoutHints(t *testing.T) {
	for name, input := range map[string]string{
		"skipped":  "no\n\n",
		"bad json": "n\n{not json\n",
		"empty":    "n\n{}\n",
	} {
		t.Run(name, func(t *testing.T) {
			ui, _ := newTestInterface(input, false)

			d, err := ui.Review(context.Background(), entity.TestStep{ID: "1"}, samplePlan())

			require.NoError(t, err)
			assert.False(t, d.Approved)
			assert.Nil(t, d.Hints)
		})
	}
}

func TestReview_ClosedInput(t *testing.T) {
	ui, _ := newTestInterface("", false)

	_, err := ui.Review(context.Background(), entity.TestStep{ID: "1"}, samplePlan())

	require.Error(t, err)
	assert.Equal(t, apperr.CodeReviewerError, apperr.CodeOf(err))
}

func TestReview_AutoApprove(t *testing.T) {
	ui, out := newTestInterface("", true)

	d, err := ui.Review(context.Background(), entity.TestStep{ID: "1"}, samplePlan())

	require.NoError(t, err)
	assert.True(t, d.Approved)
	assert.Contains(t, out.String(), "Предпросмотр шага")
}

func TestAsk_ContextCancelled(t *testing.T) {
	ui, _ := newTestInterface("", false)
	pr, pw := io.Pipe()
	defer pw.Close()
	ui.in.Reset(pr)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := ui.ask(ctx, "> ")

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStop_ReleasesReaderAfterCancelledPrompt(t *testing.T) {
	ui, _ := newTestInterface("", false)
	pr, pw := io.Pipe()
	defer pw.Close()
	ui.in.Reset(pr)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := ui.ask(ctx, "> ")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	ui.Stop()
	ui.Stop()

	go func() {
		_, _ = pw.Write([]byte("late answer\n"))
	}()

	select {
	case line, ok := <-ui.lines:
		assert.False(t, ok, "reader delivered %q after stop", line)
	case <-time.After(time.Second):
		t.Fatal("reader did not exit after stop")
	}
}

func TestAsk_AfterStop(t *testing.T) {
	ui, _ := newTestInterface("y\n", false)
	ui.Stop()

	_, err := ui.Review(context.Background(), entity.TestStep{ID: "1"}, samplePlan())

	require.Error(t, err)
	assert.Equal(t, apperr.CodeReviewerError, apperr.CodeOf(err))
}

func TestContinueAfterFailure(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"\n", true},
		{"n\n", false},
		{"stop\n", false},
	}

	for _, tt := range tests {
		ui, out := newTestInterface(tt.input, false)

		proceed, err := ui.ContinueAfterFailure(context.Background(), entity.TestStep{ID: "1"}, &entity.ExecutionResult{})

		require.NoError(t, err)
		assert.Equal(t, tt.want, proceed, tt.input)
		assert.Contains(t, out.String(), "Продолжить к следующему шагу?")
	}
}

func TestContinueAfterFailure_AutoApprove(t *testing.T) {
	ui, out := newTestInterface("", true)

	proceed, err := ui.ContinueAfterFailure(context.Background(), entity.TestStep{ID: "1"}, &entity.ExecutionResult{})

	require.NoError(t, err)
	assert.True(t, proceed)
	assert.Empty(t, out.String())
}

func TestStepFinished(t *testing.T) {
	ui, out := newTestInterface("", false)

	ui.StepFinished(entity.TestStep{ID: "2"}, &entity.ExecutionResult{
		OK:    false,
		URL:   "https://example.test/",
		Title: "Example",
		Errors: []entity.ExecutionError{{
			Code:    entity.ErrorCodeRuntime,
			Message: "boom",
			Details: map[string]any{"trace": strings.Repeat("x", 500), "instruction_index": 1},
		}},
	})

	text := out.String()
	assert.Contains(t, text, strings.Repeat("=", borderWidth))
	assert.Contains(t, text, "РЕЗУЛЬТАТ ШАГА #2: FAIL")
	assert.Contains(t, text, "URL: https://example.test/")
	assert.Contains(t, text, "1. [runtime] boom | details={instruction_index: 1, trace: "+strings.Repeat("x", detailLimit)+"…}")
	assert.NotContains(t, text, strings.Repeat("x", detailLimit+1))
}

func TestStepFinished_OK(t *testing.T) {
	ui, out := newTestInterface("", false)

	ui.StepFinished(entity.TestStep{ID: "1"}, &entity.ExecutionResult{OK: true})

	assert.Contains(t, out.String(), "РЕЗУЛЬТАТ ШАГА #1: OK")
	assert.Contains(t, out.String(), "Ошибок нет.")
}

func TestRunFinished(t *testing.T) {
	ui, out := newTestInterface("", false)

	ui.RunFinished(&entity.RunState{Steps: []entity.TestStep{{ID: "1"}, {ID: "2"}}, CurrentIndex: 1, Stopped: true})

	assert.Contains(t, out.String(), "ТЕСТ ЗАВЕРШЁН.")
	assert.Contains(t, out.String(), "Выполнено шагов: 1 из 2")
	assert.Contains(t, out.String(), "остановлен")

	ui, out = newTestInterface("", false)
	ui.RunFinished(&entity.RunState{})

	assert.Contains(t, out.String(), "Не найдено ни одного шага")
}
