package ai

import (
	"ai-test-agent/internal/entity"
	"ai-test-agent/internal/ports"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	maxInventoryText = 120
	maxInventoryAttr = 80
	maxCSSCandidates = 3
	maxTitleChars    = 120
	truncationMarker = "\n...TRUNCATED...\n"
)

const systemPrompt = `You plan the steps of a Playwright UI test.
Reply with JSON only, no explanations and no Markdown.

Rules:
- action: navigate | click | fill | waitForSelector | waitForURL | assertVisible | assertText
- selector type: testid | role | label | placeholder | text | css | id
- Never use xpath. Ignore svg completely (it is already removed from the markup).
- Give 1-3 alternative selectors (alternatives) for important actions (click, fill).
- Selector priority: testid > role > label/placeholder > id > text > css.
- For classes with hashed suffixes use css only as [class^="stable_part"] or [class*="stable_part"].
- For navigate use wait: { "for": "domcontentloaded" } by default.
- Build expects from the expected result section (urlIncludes, elementVisible, assertText).
- Follow the schema StepPlan { stepId, title, instructions[], expects[], hintsFromUser? }.
- The step text may be written in Russian; keep selector values in the page's language.

Output exactly one valid StepPlan JSON object and nothing else.`

// inventoryItem is the trimmed DOM element sent to the planner.
type inventoryItem struct {
	Tag           string   `json:"tag"`
	Text          string   `json:"text"`
	ID            string   `json:"id,omitempty"`
	Role          string   `json:"role,omitempty"`
	TestID        string   `json:"testid,omitempty"`
	Placeholder   string   `json:"placeholder,omitempty"`
	Label         string   `json:"label,omitempty"`
	CSSCandidates []string `json:"cssCandidates"`
}

// shrinkInventory keeps the first maxItems elements; a negative limit keeps none.
func shrinkInventory(inv []entity.DomElement, maxItems int) []inventoryItem {
	maxItems = max(maxItems, 0)
	if len(inv) > maxItems {
		inv = inv[:maxItems]
	}

	out := make([]inventoryItem, 0, len(inv))

	for _, el := range inv {
		css := el.CSSCandidates
		if len(css) > maxCSSCandidates {
			css = css[:maxCSSCandidates]
		}
		if css == nil {
			css = []string{}
		}

		out = append(out, inventoryItem{
			Tag:           el.Tag,
			Text:          headRunes(el.Text, maxInventoryText),
			ID:            el.ID,
			Role:          el.Role,
			TestID:        el.TestID,
			Placeholder:   headRunes(el.Placeholder, maxInventoryAttr),
			Label:         headRunes(el.Label, maxInventoryAttr),
			CSSCandidates: css,
		})
	}

	return out
}

// truncate keeps the head and the tail of s when it is longer than maxChars.
func truncate(s string, maxChars int) string {
	runes := []rune(s)
	if len(runes) <= maxChars {
		return s
	}

	half := max(maxChars, 0) / 2

	return string(runes[:half]) + truncationMarker + string(runes[len(runes)-half:])
}

func headRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}

	return string(runes[:n])
}

func buildUserPrompt(req ports.PlanRequest, maxBodyChars, maxInventory int) string {
	inventory, err := json.Marshal(shrinkInventory(req.Inventory, maxInventory))
	if err != nil {
		inventory = []byte("[]")
	}

	hints := req.Hints
	if hints == nil {
		hints = entity.Hints{}
	}

	hintsJSON, err := json.Marshal(hints)
	if err != nil {
		hintsJSON = []byte("{}")
	}

	var sb strings.Builder

	if req.Given != "" {
		fmt.Fprintf(&sb, "GIVEN: %s\n", req.Given)
	}

	fmt.Fprintf(&sb, "ACTION: %s\n", req.Action)
	fmt.Fprintf(&sb, "EXPECTED RESULT: %s\n\n", req.Result)

	sb.WriteString("CURRENT STATE:\n")
	fmt.Fprintf(&sb, "- URL: %s\n", req.Snapshot.URL)
	fmt.Fprintf(&sb, "- TITLE: %s\n", req.Snapshot.Title)
	sb.WriteString("- BODY_HTML (svg removed, truncated): <<<HTML_START>>>\n")
	sb.WriteString(truncate(req.Snapshot.BodyHTML, maxBodyChars))
	sb.WriteString("\n<<<HTML_END>>>\n\n")

	sb.WriteString("DOM INVENTORY (truncated):\n")
	sb.Write(inventory)
	sb.WriteString("\n\n")

	sb.WriteString("REVIEWER HINTS (if any):\n")
	sb.Write(hintsJSON)
	sb.WriteString("\n\n")

	sb.WriteString("Generate the StepPlan JSON for the step:\n")
	fmt.Fprintf(&sb, "- stepId: %q\n", req.StepID)
	fmt.Fprintf(&sb, "- title: %q\n", truncate(req.StepTitle, maxTitleChars))

	return sb.String()
}
