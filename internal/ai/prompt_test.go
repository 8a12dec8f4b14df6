package ai

import (
	"ai-test-agent/internal/entity"
	"ai-test-agent/internal/ports"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruncateKeepsHeadAndTail(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))

	out := truncate("aaaaabbbbb", 4)
	assert.Equal(t, "aa"+truncationMarker+"bb", out)
}

func TestShrinkInventory(t *testing.T) {
	inv := []entity.DomElement{
		{Tag: "button", Text: strings.Repeat("x", 200), CSSCandidates: []string{"a", "b", "c", "d"}},
		{Tag: "input", Placeholder: strings.Repeat("p", 100)},
		{Tag: "div"},
	}

	out := shrinkInventory(inv, 2)

	require.Len(t, out, 2)
	assert.Len(t, out[0].Text, maxInventoryText)
	assert.Equal(t, []string{"a", "b", "c"}, out[0].CSSCandidates)
	assert.Len(t, out[1].Placeholder, maxInventoryAttr)
	assert.NotNil(t, out[1].CSSCandidates)
}

func TestShrinkInventoryNegativeLimit(t *testing.T) {
	inv := []entity.DomElement{{Tag: "button"}, {Tag: "div"}}

	out := shrinkInventory(inv, -1)

	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestTruncateNegativeLimit(t *testing.T) {
	assert.Equal(t, truncationMarker, truncate("body", -5))
}

func TestBuildUserPromptCarriesStepContext(t *testing.T) {
	prompt := buildUserPrompt(ports.PlanRequest{
		StepID:    "2",
		StepTitle: "Apply filters",
		Action:    "Apply severity filters",
		Result:    "Filters applied",
		Snapshot:  entity.Snapshot{URL: "https://example/registry", Title: "Registry", BodyHTML: "<body></body>"},
		Inventory: []entity.DomElement{{Tag: "button", TestID: "filter"}},
		Hints:     entity.RejectedWithoutHints(),
	}, 1000, 10)

	assert.Contains(t, prompt, "ACTION: Apply severity filters")
	assert.Contains(t, prompt, "EXPECTED RESULT: Filters applied")
	assert.Contains(t, prompt, "- URL: https://example/registry")
	assert.Contains(t, prompt, `"testid":"filter"`)
	assert.Contains(t, prompt, entity.NoteRejectedWithoutHints)
	assert.Contains(t, prompt, `- stepId: "2"`)
	assert.NotContains(t, prompt, "GIVEN:")
}
