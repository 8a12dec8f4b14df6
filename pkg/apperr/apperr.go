package apperr

import (
	"errors"
	"fmt"
)

const (
	MetaReason   = "reason"
	MetaStage    = "stage"
	MetaField    = "field"
	MetaStepID   = "step_id"
	MetaIndex    = "instruction_index"
	MetaAction   = "action"
	MetaSelector = "selector"
	MetaURL      = "url"

	StageBrowser     = "browser"
	StagePlanning    = "planning"
	StageReview      = "review"
	StageExecution   = "execution"
	StagePageState   = "page_state"
	StageNavigation  = "navigation"
	StageInteraction = "interaction"
	StageAssertion   = "assertion"
	StageScript      = "script"

	CodeInternal        = "internal"
	CodeInvalidArgument = "invalid_argument"
	CodeNotFound        = "not_found"
	CodeTimeout         = "timeout"
	CodeBrowserNotReady = "browser_not_ready"
	CodeActionFailed    = "action_failed"
	CodeAssertionFailed = "assertion_failed"
	CodePlannerError    = "planner_error"
	CodeReviewerError   = "reviewer_error"
	CodeReplanLimit     = "replan_limit"
	CodeRuntime         = "runtime"
)

type Error struct {
	Op       string
	Code     string
	Err      error
	Metadata map[string]any
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}

	return e.Op
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Wrap(op, code string, err error, metadata map[string]any) error {
	if metadata == nil {
		metadata = make(map[string]any)
	}

	return &Error{
		Op:       op,
		Code:     code,
		Err:      err,
		Metadata: metadata,
	}
}

func WrapWithReason(op, code string, err error, reason string) error {
	return Wrap(op, code, err, map[string]any{
		MetaReason: reason,
	})
}

func WrapErrorWithReason(op, code, reason string) error {
	return Wrap(op, code, errors.New(reason), map[string]any{
		MetaReason: reason,
	})
}

func InvalidReqError(op, field string, err error) error {
	return Wrap(op, CodeInvalidArgument, err, map[string]any{
		MetaField:  field,
		MetaReason: "invalid_request",
	})
}

func NotFoundError(op string, err error) error {
	return Wrap(op, CodeNotFound, err, map[string]any{
		MetaReason: "not_found",
	})
}

// Metadata collects the metadata of every *Error in err's chain.
// Outer entries win over inner ones.
func Metadata(err error) map[string]any {
	out := make(map[string]any)

	for err != nil {
		var appErr *Error
		if !errors.As(err, &appErr) {
			break
		}

		for k, v := range appErr.Metadata {
			if _, ok := out[k]; !ok {
				out[k] = v
			}
		}

		err = appErr.Err
	}

	return out
}

// CodeOf returns the code of the outermost *Error in err's chain.
func CodeOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}

	return ""
}
