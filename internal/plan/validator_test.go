package plan

import (
	"ai-test-agent/internal/entity"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validPlan = `{"stepId":"1","title":"Open registry","instructions":[
  {"action":"navigate","url":"https://example/registry","wait":{"for":"domcontentloaded","timeoutMs":10000}},
  {"action":"click","target":{"selector":{"type":"testid","value":"open-btn"},"alternatives":[{"type":"css","value":"[class^=\"btn\"]"}]}}
],"expects":[{"kind":"urlIncludes","value":"/registry"}]}`

func TestValidateFallsBackToEmptyPlan(t *testing.T) {
	hints := entity.Hints{"note": "x"}

	tests := []struct {
		name string
		raw  string
	}{
		{name: "empty string", raw: ""},
		{name: "malformed json", raw: `{"stepId": "1", "title": `},
		{name: "not an object", raw: `[1, 2, 3]`},
		{name: "null", raw: `null`},
		{name: "unknown action", raw: `{"stepId":"1","title":"t","instructions":[{"action":"hover"}]}`},
		{name: "selector without type", raw: `{"stepId":"1","title":"t","instructions":[{"action":"click","target":{"selector":{"value":"x"}}}]}`},
		{name: "instructions wrong type", raw: `{"stepId":"1","title":"t","instructions":"click"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Validate(tt.raw, "Fallback", "7", hints)

			require.NotNil(t, p)
			assert.Equal(t, "7", p.StepID)
			assert.Equal(t, "Fallback", p.Title)
			assert.NotNil(t, p.Instructions)
			assert.Empty(t, p.Instructions)
			assert.NotNil(t, p.Expects)
			assert.Empty(t, p.Expects)
			assert.Equal(t, hints, p.HintsFromUser)
		})
	}
}

func TestValidateRepairsMissingFields(t *testing.T) {
	p := Validate(`{"foo":"bar"}`, "Fallback", "3", nil)

	assert.Equal(t, "3", p.StepID)
	assert.Equal(t, "Fallback", p.Title)
	assert.Empty(t, p.Instructions)
	assert.Empty(t, p.Expects)
}

func TestValidateRepairKeepsPresentFieldsButForcesStepID(t *testing.T) {
	raw := `{"stepId":"99","instructions":[{"action":"navigate","url":"https://example"}]}`

	p := Validate(raw, "Fallback", "3", nil)

	assert.Equal(t, "3", p.StepID)
	assert.Equal(t, "Fallback", p.Title)
	require.Len(t, p.Instructions, 1)
	assert.Equal(t, "https://example", entity.Deref(p.Instructions[0].URL))
}

func TestValidateAcceptsValidDocument(t *testing.T) {
	p := Validate(validPlan, "Fallback", "1", nil)

	assert.Equal(t, "1", p.StepID)
	assert.Equal(t, "Open registry", p.Title)
	require.Len(t, p.Instructions, 2)

	nav := p.Instructions[0]
	assert.Equal(t, entity.ActionNavigate, nav.Action)
	require.NotNil(t, nav.Wait)
	assert.Equal(t, entity.WaitForDOMContentLoaded, nav.Wait.For)
	assert.Equal(t, 10000, nav.Wait.TimeoutMs)

	click := p.Instructions[1]
	require.NotNil(t, click.Target)
	assert.Equal(t, entity.Selector{Type: entity.SelectorTestID, Value: "open-btn"}, click.Target.Selector)
	assert.Len(t, click.Target.Alternatives, 1)

	require.Len(t, p.Expects, 1)
	assert.Equal(t, entity.ExpectURLIncludes, p.Expects[0].Kind)
}

func TestValidateTrustsStepIDOfCleanDocument(t *testing.T) {
	p := Validate(`{"stepId":"42","title":"t","instructions":[]}`, "Fallback", "1", nil)

	assert.Equal(t, "42", p.StepID)
	assert.Equal(t, "t", p.Title)
	assert.NotNil(t, p.Expects)
}

func TestValidateDefaultsWaitTimeout(t *testing.T) {
	raw := `{"stepId":"1","title":"t","instructions":[{"action":"navigate","url":"u","wait":{"for":"networkidle"}}]}`

	p := Validate(raw, "Fallback", "1", nil)

	require.Len(t, p.Instructions, 1)
	require.NotNil(t, p.Instructions[0].Wait)
	assert.Equal(t, entity.DefaultWaitTimeoutMs, p.Instructions[0].Wait.TimeoutMs)
}

func TestValidateKeepsPlanWithEmptyAlternativeValue(t *testing.T) {
	raw := `{"stepId":"1","title":"Open menu","instructions":[
	  {"action":"click","target":{"selector":{"type":"text","value":"Menu"},"alternatives":[{"type":"css","value":""}]}}
	],"expects":[]}`

	p := Validate(raw, "Fallback", "1", nil)

	assert.Equal(t, "Open menu", p.Title)
	require.Len(t, p.Instructions, 1)
	require.NotNil(t, p.Instructions[0].Target)
	assert.Equal(t, "Menu", p.Instructions[0].Target.Selector.Value)
	require.Len(t, p.Instructions[0].Target.Alternatives, 1)
	assert.Empty(t, p.Instructions[0].Target.Alternatives[0].Value)
}
