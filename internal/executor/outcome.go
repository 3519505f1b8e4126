package executor

import (
	"fmt"
	"strings"
)

// OutcomeKind tags an Outcome.
type OutcomeKind int

const (
	OutcomeSucceeded OutcomeKind = iota + 1
	OutcomeFailed
	OutcomeCancelled
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeFailed:
		return "failed"
	case OutcomeCancelled:
		return "cancelled"
	}
	return "invalid"
}

// Outcome is the result of one action attempt.
type Outcome struct {
	Kind OutcomeKind
	// Outputs confirms the artifacts a successful action produced.
	Outputs []string
	// Code and Reason describe a failure or cancellation.
	Code   string
	Reason string
}

// Succeeded confirms the produced outputs.
func Succeeded(outputs ...string) Outcome {
	return Outcome{Kind: OutcomeSucceeded, Outputs: outputs}
}

// Failed reports a failure with the generic execution code.
func Failed(reason string) Outcome {
	return FailedWithCode(CodeExecutionFailed, reason)
}

// FailedWithCode reports a failure with a specific code.
func FailedWithCode(code, reason string) Outcome {
	return Outcome{Kind: OutcomeFailed, Code: code, Reason: reason}
}

// Cancelled reports that the action was stopped before completing.
func Cancelled(reason string) Outcome {
	return Outcome{Kind: OutcomeCancelled, Code: CodeCancelled, Reason: reason}
}

// IsSuccess reports whether the outcome is a success.
func (o Outcome) IsSuccess() bool {
	return o.Kind == OutcomeSucceeded
}

// Err converts a non-successful outcome into an ExecutionError.
func (o Outcome) Err(action string) error {
	if o.IsSuccess() {
		return nil
	}
	return &ExecutionError{Action: action, Code: o.Code, Reason: o.Reason}
}

// String renders the outcome for logs.
func (o Outcome) String() string {
	switch o.Kind {
	case OutcomeSucceeded:
		return fmt.Sprintf("succeeded(%s)", strings.Join(o.Outputs, ","))
	case OutcomeFailed, OutcomeCancelled:
		return fmt.Sprintf("%s(%s: %s)", o.Kind, o.Code, o.Reason)
	}
	return "invalid"
}
