package entity

const ErrorCodeRuntime = "runtime"

type ExecutionError struct {
	Code    string
	Message string
	Details map[string]any
}

type ExecutionResult struct {
	OK       bool
	Errors   []ExecutionError
	URL      string
	Title    string
	BodyHTML string
	Logs     []string
}

// Fail records e as the result's only error.
func (r *ExecutionResult) Fail(e ExecutionError) {
	r.Errors = []ExecutionError{e}
	r.OK = false
}

func (r *ExecutionResult) Snapshot() *Snapshot {
	return &Snapshot{
		URL:      r.URL,
		Title:    r.Title,
		BodyHTML: r.BodyHTML,
	}
}
