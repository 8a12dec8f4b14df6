package plan

import (
	"ai-test-agent/internal/entity"
	"encoding/json"
	"strings"
)

// Merge applies reviewer hints to p and returns the result; p is not modified.
// prepend_instructions is always applied before selector_override, whose
// index refers to the instruction list after the prepend. Malformed parts of
// the hints are ignored.
func Merge(p *entity.StepPlan, hints entity.Hints) *entity.StepPlan {
	out := p.Clone()

	if len(hints) == 0 {
		return out
	}

	if records, ok := hints[entity.HintPrependInstructions].([]any); ok {
		prepend := make([]entity.Instruction, 0, len(records))

		for _, record := range records {
			ins, err := DecodeInstruction(record)
			if err != nil {
				continue
			}
			prepend = append(prepend, ins)
		}

		out.Instructions = append(prepend, out.Instructions...)
	}

	if override, ok := hints[entity.HintSelectorOverride].(map[string]any); ok {
		applySelectorOverride(out, override)
	}

	return out
}

func applySelectorOverride(p *entity.StepPlan, override map[string]any) {
	idx, ok := instructionIndex(override)
	if !ok || idx < 0 || idx >= len(p.Instructions) {
		return
	}

	sel, err := DecodeSelector(override["selector"])
	if err != nil {
		return
	}

	p.Instructions[idx].Target = &entity.Target{
		Selector:     sel,
		Alternatives: []entity.Selector{},
	}
}

// instructionIndex reads instructionIndex as an integer literal, defaulting
// to 0 when the key is absent. Fractional literals such as 1.0 are rejected.
func instructionIndex(override map[string]any) (int, bool) {
	raw, present := override["instructionIndex"]
	if !present {
		return 0, true
	}

	switch n := raw.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}

		return int(i), true
	default:
		return 0, false
	}
}

// ParseHints parses reviewer input as a hints payload. Blank input, invalid
// JSON, non-object JSON and empty objects all report false. Numbers are kept
// as json.Number so integer and fractional literals stay distinguishable.
func ParseHints(text string) (entity.Hints, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, false
	}

	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	var hints entity.Hints
	if err := dec.Decode(&hints); err != nil {
		return nil, false
	}

	if dec.More() {
		return nil, false
	}

	if len(hints) == 0 {
		return nil, false
	}

	return hints, true
}
