package entity

import (
	"encoding/json"
	"fmt"
	"strings"
)

type SelectorType string

const (
	SelectorTestID      SelectorType = "testid"
	SelectorRole        SelectorType = "role"
	SelectorLabel       SelectorType = "label"
	SelectorPlaceholder SelectorType = "placeholder"
	SelectorText        SelectorType = "text"
	SelectorCSS         SelectorType = "css"
	SelectorID          SelectorType = "id"
)

type ActionType string

const (
	ActionNavigate        ActionType = "navigate"
	ActionClick           ActionType = "click"
	ActionFill            ActionType = "fill"
	ActionWaitForSelector ActionType = "waitForSelector"
	ActionWaitForURL      ActionType = "waitForURL"
	ActionAssertVisible   ActionType = "assertVisible"
	ActionAssertText      ActionType = "assertText"
)

type WaitFor string

const (
	WaitForDOMContentLoaded WaitFor = "domcontentloaded"
	WaitForNetworkIdle      WaitFor = "networkidle"
)

type ExpectationKind string

const (
	ExpectURLIncludes    ExpectationKind = "urlIncludes"
	ExpectElementVisible ExpectationKind = "elementVisible"
	ExpectAssertText     ExpectationKind = "assertText"
)

const DefaultWaitTimeoutMs = 10000

type Selector struct {
	Type  SelectorType `json:"type" validate:"required,oneof=testid role label placeholder text css id"`
	Value string       `json:"value"`
}

// Query renders the selector in playwright selector syntax.
func (s Selector) Query() string {
	switch s.Type {
	case SelectorTestID:
		return "data-testid=" + s.Value
	case SelectorRole:
		return "role=" + s.Value
	case SelectorLabel:
		return fmt.Sprintf(`[aria-label=%q]`, s.Value)
	case SelectorPlaceholder:
		return fmt.Sprintf(`[placeholder=%q]`, s.Value)
	case SelectorText:
		return "text=" + s.Value
	case SelectorID:
		return "id=" + strings.TrimPrefix(s.Value, "#")
	default:
		return s.Value
	}
}

func (s Selector) String() string {
	return fmt.Sprintf("%s='%s'", s.Type, s.Value)
}

type Target struct {
	Selector     Selector   `json:"selector"`
	Alternatives []Selector `json:"alternatives" validate:"dive"`
}

type WaitSpec struct {
	For       WaitFor `json:"for" validate:"required,oneof=domcontentloaded networkidle"`
	TimeoutMs int     `json:"timeoutMs" validate:"gte=0"`
}

// UnmarshalJSON applies DefaultWaitTimeoutMs when timeoutMs is absent.
func (w *WaitSpec) UnmarshalJSON(data []byte) error {
	type plain WaitSpec

	aux := plain{TimeoutMs: DefaultWaitTimeoutMs}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	*w = WaitSpec(aux)

	return nil
}

type Instruction struct {
	Action    ActionType `json:"action" validate:"required,oneof=navigate click fill waitForSelector waitForURL assertVisible assertText"`
	URL       *string    `json:"url,omitempty"`
	Target    *Target    `json:"target,omitempty"`
	Value     *string    `json:"value,omitempty"`
	Masking   bool       `json:"masking,omitempty"`
	Wait      *WaitSpec  `json:"wait,omitempty"`
	WaitAfter *WaitSpec  `json:"waitAfter,omitempty"`
}

// PrimarySelector returns the primary selector of the target, if any.
func (i Instruction) PrimarySelector() (Selector, bool) {
	if i.Target == nil {
		return Selector{}, false
	}

	return i.Target.Selector, true
}

type Expectation struct {
	Kind     ExpectationKind `json:"kind" validate:"required,oneof=urlIncludes elementVisible assertText"`
	Value    *string         `json:"value,omitempty"`
	Selector *Selector       `json:"selector,omitempty"`
}

type StepPlan struct {
	StepID        string        `json:"stepId"`
	Title         string        `json:"title"`
	Instructions  []Instruction `json:"instructions" validate:"dive"`
	Expects       []Expectation `json:"expects" validate:"dive"`
	HintsFromUser Hints         `json:"hintsFromUser,omitempty"`
}

// EmptyPlan is the instruction-free plan used whenever a plan document cannot be trusted.
func EmptyPlan(stepID, title string, hints Hints) *StepPlan {
	return &StepPlan{
		StepID:        stepID,
		Title:         title,
		Instructions:  []Instruction{},
		Expects:       []Expectation{},
		HintsFromUser: hints,
	}
}

// Clone returns a copy whose instruction list and targets can be modified
// without touching the receiver.
func (p *StepPlan) Clone() *StepPlan {
	out := *p

	out.Instructions = make([]Instruction, len(p.Instructions))
	for i, ins := range p.Instructions {
		if ins.Target != nil {
			t := *ins.Target
			t.Alternatives = append([]Selector(nil), ins.Target.Alternatives...)
			ins.Target = &t
		}
		out.Instructions[i] = ins
	}

	out.Expects = append([]Expectation{}, p.Expects...)

	return &out
}

func StringPtr(s string) *string {
	return &s
}

func Deref(s *string) string {
	if s == nil {
		return ""
	}

	return *s
}
