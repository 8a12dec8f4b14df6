package console

import (
	"ai-test-agent/internal/entity"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const borderWidth = 60

type styles struct {
	header lipgloss.Style
	ok     lipgloss.Style
	fail   lipgloss.Style
	warn   lipgloss.Style
	muted  lipgloss.Style
}

func newStyles(out io.Writer) styles {
	r := lipgloss.NewRenderer(out)

	return styles{
		header: r.NewStyle().Bold(true).Foreground(lipgloss.Color("14")),
		ok:     r.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
		fail:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		warn:   r.NewStyle().Foreground(lipgloss.Color("11")),
		muted:  r.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

func (i *Interface) printPlan(p *entity.StepPlan) {
	var sb strings.Builder

	sb.WriteString("\n" + i.styles.header.Render("--- Предпросмотр шага ---") + "\n")
	fmt.Fprintf(&sb, "Шаг %s: %s\n", p.StepID, p.Title)
	sb.WriteString("Инструкции:\n")

	if len(p.Instructions) == 0 {
		sb.WriteString(i.styles.muted.Render("  (нет инструкций)") + "\n")
	}

	for n, ins := range p.Instructions {
		sb.WriteString(formatInstruction(n, ins) + "\n")
	}

	if len(p.Expects) > 0 {
		sb.WriteString("Ожидания:\n")

		for _, e := range p.Expects {
			sb.WriteString(formatExpectation(e) + "\n")
		}
	}

	if len(p.HintsFromUser) > 0 && !p.HintsFromUser.IsRejectedWithoutHints() {
		sb.WriteString(i.styles.muted.Render("С учётом подсказок ревьюера.") + "\n")
	}

	sb.WriteString(i.styles.header.Render("-------------------------"))

	i.println(sb.String())
}

func formatInstruction(n int, ins entity.Instruction) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "  %d. action=%s", n, ins.Action)

	if ins.URL != nil {
		fmt.Fprintf(&sb, " url=%s", *ins.URL)
	}

	if ins.Target != nil {
		fmt.Fprintf(&sb, " target=(%s)", ins.Target.Selector)

		if alts := ins.Target.Alternatives; len(alts) > 0 {
			shown := make([]string, 0, 2)
			for _, a := range alts[:min(2, len(alts))] {
				shown = append(shown, fmt.Sprintf("%s:%s", a.Type, a.Value))
			}

			fmt.Fprintf(&sb, " alts=[%s...]", strings.Join(shown, ", "))
		}
	}

	if ins.Value != nil {
		value := *ins.Value
		if ins.Masking {
			value = "***"
		}

		fmt.Fprintf(&sb, " value=%q", value)
	}

	return sb.String()
}

func formatExpectation(e entity.Expectation) string {
	if e.Selector != nil {
		return fmt.Sprintf("  - %s selector(%s) value=%s", e.Kind, *e.Selector, entity.Deref(e.Value))
	}

	return fmt.Sprintf("  - %s value=%s", e.Kind, entity.Deref(e.Value))
}

func (i *Interface) StepFinished(step entity.TestStep, result *entity.ExecutionResult) {
	border := strings.Repeat("=", borderWidth)

	status := i.styles.ok.Render("OK")
	if !result.OK {
		status = i.styles.fail.Render("FAIL")
	}

	var sb strings.Builder

	sb.WriteString("\n" + border + "\n")
	fmt.Fprintf(&sb, "РЕЗУЛЬТАТ ШАГА #%s: %s\n", step.ID, status)
	fmt.Fprintf(&sb, "URL: %s\n", result.URL)
	fmt.Fprintf(&sb, "TITLE: %s\n", result.Title)

	if result.OK {
		sb.WriteString("Ошибок нет.\n")
	} else {
		sb.WriteString("Ошибки:\n")

		for n, e := range result.Errors {
			fmt.Fprintf(&sb, "  %d. [%s] %s", n+1, e.Code, e.Message)

			if len(e.Details) > 0 {
				fmt.Fprintf(&sb, " | details={%s}", formatDetails(e.Details))
			}

			sb.WriteString("\n")
		}
	}

	sb.WriteString(border)

	i.println(sb.String())
}

func (i *Interface) RunFinished(state *entity.RunState) {
	if len(state.Steps) == 0 {
		i.println(i.styles.warn.Render("Не найдено ни одного шага. Проверь формат нумерованного списка."))

		return
	}

	i.println("")
	i.println(i.styles.header.Render("ТЕСТ ЗАВЕРШЁН."))
	i.println(fmt.Sprintf("Выполнено шагов: %d из %d", state.CurrentIndex, len(state.Steps)))

	if state.Stopped {
		i.println(i.styles.warn.Render("Прогон остановлен после неуспешного шага."))
	}
}

// formatDetails renders details in key order, cutting long strings.
func formatDetails(details map[string]any) string {
	keys := slices.Sorted(maps.Keys(details))
	parts := make([]string, 0, len(keys))

	for _, k := range keys {
		v := details[k]
		if s, ok := v.(string); ok {
			v = cut(s, detailLimit)
		}

		parts = append(parts, fmt.Sprintf("%s: %v", k, v))
	}

	return strings.Join(parts, ", ")
}

func cut(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}

	return string(runes[:limit]) + "…"
}
