// Package script tokenizes numbered test scripts into steps.
package script

import (
	"ai-test-agent/internal/entity"
	"regexp"
	"strings"
)

// DefaultScript runs when no script file is given.
const DefaultScript = `
1. Дано: пользователь на главной. Что сделать: Открыть реестр уязвимостей. Результат: Реестр открыт.
2. Дано: Реестр открыт. Что сделать: Применить фильтры по критичности. Результат: Фильтры применены.
`

type section int

const (
	sectionNone section = iota
	sectionGiven
	sectionAction
	sectionResult
)

var (
	stepLine = regexp.MustCompile(`^\s*(\d+)\.\s*(.*)$`)

	// Russian labels are matched in their written forms with an optional
	// colon; English labels are case-insensitive and need the colon.
	labelPattern = regexp.MustCompile(
		`(?:^|[^\p{L}])(?:(Дано|ДАНО)|(Что сделать|ЧТО СДЕЛАТЬ|Действие|ДЕЙСТВИЕ)|(Результат|РЕЗУЛЬТАТ|Ожидание|ОЖИДАНИЕ))\s*:?\s*` +
			`|(?:^|[^\p{L}])(?i:(given|precondition)|(action|do)|(expected result|expected|result))\s*:\s*`,
	)
)

// groupSections maps submatch groups of labelPattern to sections.
var groupSections = []section{sectionGiven, sectionAction, sectionResult, sectionGiven, sectionAction, sectionResult}

// Parse returns the numbered steps of text in order. Lines that do not start
// with a number continue the previous step.
func Parse(text string) []entity.TestStep {
	steps := make([]entity.TestStep, 0)

	var (
		current *entity.TestStep
		body    []string
	)

	flush := func() {
		if current == nil {
			return
		}

		current.Raw = strings.TrimSpace(strings.Join(body, " "))
		fillSections(current)
		steps = append(steps, *current)
	}

	for _, line := range strings.Split(text, "\n") {
		if m := stepLine.FindStringSubmatch(line); m != nil {
			flush()

			current = &entity.TestStep{ID: m[1]}
			body = []string{strings.TrimSpace(m[2])}

			continue
		}

		if current != nil && strings.TrimSpace(line) != "" {
			body = append(body, strings.TrimSpace(line))
		}
	}

	flush()

	return steps
}

func fillSections(step *entity.TestStep) {
	matches := labelPattern.FindAllStringSubmatchIndex(step.Raw, -1)

	for i, m := range matches {
		kind, _ := classify(m)
		if kind == sectionNone {
			continue
		}

		end := len(step.Raw)
		if i+1 < len(matches) {
			_, end = classify(matches[i+1])
		}

		content := strings.TrimSpace(step.Raw[m[1]:end])
		switch kind {
		case sectionGiven:
			if step.Given == "" {
				step.Given = content
			}
		case sectionAction:
			if step.Action == "" {
				step.Action = content
			}
		case sectionResult:
			if step.ExpectedResult == "" {
				step.ExpectedResult = content
			}
		}
	}
}

// classify returns the section of a labelPattern match and the offset where
// its label text begins.
func classify(m []int) (section, int) {
	for g, kind := range groupSections {
		start := m[2*(g+1)]
		if start >= 0 {
			return kind, start
		}
	}

	return sectionNone, m[0]
}
