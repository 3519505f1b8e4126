package executor

import "fmt"

// Runtime error codes.
const (
	CodeExecutionFailed   = "EXECUTION_FAILED"
	CodeCancelled         = "CANCELLED"
	CodeTimeout           = "TIMEOUT"
	CodeMissingOutput     = "MISSING_OUTPUT"
	CodeHandlerNotFound   = "HANDLER_NOT_FOUND"
	CodeSecretUnavailable = "SECRET_UNAVAILABLE"
)

// ExecutionError is a runtime failure reported by an executor. Its reason is
// opaque to the core.
type ExecutionError struct {
	Action string
	Code   string
	Reason string
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("action '%s' %s: %s", e.Action, e.Code, e.Reason)
}

// Is matches another ExecutionError by code, or any ExecutionError when the
// target code is empty.
func (e *ExecutionError) Is(target error) bool {
	t, ok := target.(*ExecutionError)
	if !ok {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

// Sentinels for errors.Is.
var (
	ErrExecution       = &ExecutionError{}
	ErrCancelled       = &ExecutionError{Code: CodeCancelled}
	ErrTimeout         = &ExecutionError{Code: CodeTimeout}
	ErrMissingOutput   = &ExecutionError{Code: CodeMissingOutput}
	ErrHandlerNotFound = &ExecutionError{Code: CodeHandlerNotFound}
)
