package logg

// Structured field keys shared by every layer.
const (
	Layer     = "layer"
	Operation = "op"
	RunID     = "run_id"
	StepID    = "step_id"
	State     = "state"
	Action    = "action"
	URL       = "url"
	Selector  = "selector"
	Index     = "instruction_index"
)
