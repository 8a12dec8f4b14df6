package entity

const (
	HintPrependInstructions = "prepend_instructions"
	HintSelectorOverride    = "selector_override"
	HintNote                = "note"

	NoteRejectedWithoutHints = "user_rejected_without_hints"
)

// Hints is the reviewer payload attached to a rejection.
type Hints map[string]any

// RejectedWithoutHints is the sentinel stored when the reviewer rejects a plan
// without giving any guidance.
func RejectedWithoutHints() Hints {
	return Hints{HintNote: NoteRejectedWithoutHints}
}

func (h Hints) IsRejectedWithoutHints() bool {
	note, ok := h[HintNote].(string)

	return ok && note == NoteRejectedWithoutHints && len(h) == 1
}
