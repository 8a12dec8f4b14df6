// Package plan makes untrusted plan documents safe to execute and applies
// reviewer hints on top of them.
package plan

import (
	"ai-test-agent/internal/entity"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var schema = validator.New()

// Validate turns a raw plan document into a structurally valid StepPlan.
// It never fails: documents that cannot be parsed or repaired yield an empty
// plan titled fallbackTitle.
func Validate(raw, fallbackTitle, stepID string, hints entity.Hints) *entity.StepPlan {
	doc, err := parseDocument(raw)
	if err != nil {
		return entity.EmptyPlan(stepID, fallbackTitle, hints)
	}

	if p, err := decodePlan(doc); err == nil {
		return p
	}

	setDefault(doc, "stepId", stepID)
	setDefault(doc, "title", fallbackTitle)
	setDefault(doc, "instructions", []any{})
	setDefault(doc, "expects", []any{})

	p, err := decodePlan(doc)
	if err != nil {
		return entity.EmptyPlan(stepID, fallbackTitle, hints)
	}

	p.StepID = stepID

	return p
}

func parseDocument(raw string) (map[string]any, error) {
	var doc map[string]any

	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, err
	}

	if doc == nil {
		return nil, errors.New("plan document is null")
	}

	return doc, nil
}

func setDefault(doc map[string]any, key string, value any) {
	if _, ok := doc[key]; !ok {
		doc[key] = value
	}
}

func decodePlan(doc map[string]any) (*entity.StepPlan, error) {
	if err := requireKind[string](doc, "stepId"); err != nil {
		return nil, err
	}

	if err := requireKind[string](doc, "title"); err != nil {
		return nil, err
	}

	if err := requireKind[[]any](doc, "instructions"); err != nil {
		return nil, err
	}

	if v, ok := doc["expects"]; ok {
		if _, isList := v.([]any); !isList {
			return nil, fmt.Errorf("expects: expected a list, got %T", v)
		}
	}

	var p entity.StepPlan
	if err := decodeInto(doc, &p); err != nil {
		return nil, err
	}

	if p.Expects == nil {
		p.Expects = []entity.Expectation{}
	}

	return &p, nil
}

// DecodeInstruction parses one instruction-shaped record.
func DecodeInstruction(record any) (entity.Instruction, error) {
	var ins entity.Instruction

	if _, ok := record.(map[string]any); !ok {
		return ins, fmt.Errorf("instruction: expected an object, got %T", record)
	}

	if err := decodeInto(record, &ins); err != nil {
		return entity.Instruction{}, err
	}

	return ins, nil
}

// DecodeSelector parses one selector-shaped record.
func DecodeSelector(record any) (entity.Selector, error) {
	var sel entity.Selector

	if _, ok := record.(map[string]any); !ok {
		return sel, fmt.Errorf("selector: expected an object, got %T", record)
	}

	if err := decodeInto(record, &sel); err != nil {
		return entity.Selector{}, err
	}

	return sel, nil
}

// decodeInto re-encodes a generic JSON value into a typed struct and checks
// it against the struct's validation rules.
func decodeInto(value any, out any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(out); err != nil {
		return err
	}

	return schema.Struct(out)
}

func requireKind[T any](doc map[string]any, key string) error {
	v, ok := doc[key]
	if !ok {
		return fmt.Errorf("%s: field required", key)
	}

	if _, ok := v.(T); !ok {
		return fmt.Errorf("%s: unexpected type %T", key, v)
	}

	return nil
}
