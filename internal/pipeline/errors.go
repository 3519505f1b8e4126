// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the compile-time error taxonomy.
//
// Validation never stops at the first problem. Every check runs and its
// findings are collected into a ValidationErrors list, so that a single
// compile reports everything that needs fixing.
package pipeline

import (
	"fmt"
	"strings"
)

// Code classifies a ValidationError.
type Code string

const (
	CodeEmptyPipeline             Code = "EMPTY_PIPELINE"
	CodeInvalidName               Code = "INVALID_NAME"
	CodeInvalidKind               Code = "INVALID_KIND"
	CodeInvalidSourceStage        Code = "INVALID_SOURCE_STAGE"
	CodeDuplicateStageName        Code = "DUPLICATE_STAGE_NAME"
	CodeDuplicateActionName       Code = "DUPLICATE_ACTION_NAME"
	CodeUnresolvedArtifact        Code = "UNRESOLVED_ARTIFACT"
	CodeDuplicateArtifactProducer Code = "DUPLICATE_ARTIFACT_PRODUCER"
	CodeCyclicDependency          Code = "CYCLIC_DEPENDENCY"
	CodeLocationCollision         Code = "LOCATION_COLLISION"
)

// ValidationError describes a single structural problem in a definition.
// Only the fields relevant to the Code are populated.
type ValidationError struct {
	Code       Code
	Stage      string
	Action     string
	ArtifactID string
	// Producers lists every action producing ArtifactID when the same
	// artifact has several producers.
	Producers []string
	// Path is the cycle for CodeCyclicDependency, first element repeated
	// at the end.
	Path []string
	// Detail is free-form context appended to the message.
	Detail string
}

// Sentinels for errors.Is. They match any ValidationError with the same code.
var (
	ErrEmptyPipeline             = &ValidationError{Code: CodeEmptyPipeline}
	ErrInvalidName               = &ValidationError{Code: CodeInvalidName}
	ErrInvalidKind               = &ValidationError{Code: CodeInvalidKind}
	ErrInvalidSourceStage        = &ValidationError{Code: CodeInvalidSourceStage}
	ErrDuplicateStageName        = &ValidationError{Code: CodeDuplicateStageName}
	ErrDuplicateActionName       = &ValidationError{Code: CodeDuplicateActionName}
	ErrUnresolvedArtifact        = &ValidationError{Code: CodeUnresolvedArtifact}
	ErrDuplicateArtifactProducer = &ValidationError{Code: CodeDuplicateArtifactProducer}
	ErrCyclicDependency          = &ValidationError{Code: CodeCyclicDependency}
	ErrLocationCollision         = &ValidationError{Code: CodeLocationCollision}
)

// Error implements the error interface.
func (e *ValidationError) Error() string {
	var msg string
	switch e.Code {
	case CodeEmptyPipeline:
		msg = "pipeline has no stages"
	case CodeInvalidName:
		msg = "invalid name"
		if e.Action != "" {
			msg = fmt.Sprintf("invalid name in action '%s'", e.Action)
		} else if e.Stage != "" {
			msg = fmt.Sprintf("invalid name in stage '%s'", e.Stage)
		}
	case CodeInvalidKind:
		msg = fmt.Sprintf("action '%s' has no valid kind", e.Action)
	case CodeInvalidSourceStage:
		if e.Action == "" {
			msg = fmt.Sprintf("first stage '%s' has no actions", e.Stage)
		} else {
			msg = fmt.Sprintf("action '%s' in first stage '%s' must be a source action producing artifacts without inputs", e.Action, e.Stage)
		}
	case CodeDuplicateStageName:
		msg = fmt.Sprintf("duplicate stage name '%s'", e.Stage)
	case CodeDuplicateActionName:
		msg = fmt.Sprintf("duplicate action name '%s' in stage '%s'", e.Action, e.Stage)
	case CodeUnresolvedArtifact:
		msg = fmt.Sprintf("artifact '%s' consumed by action '%s' is not produced by any earlier stage", e.ArtifactID, e.Action)
	case CodeDuplicateArtifactProducer:
		msg = fmt.Sprintf("artifact '%s' is produced by more than one action: %s", e.ArtifactID, strings.Join(e.Producers, ", "))
	case CodeCyclicDependency:
		msg = fmt.Sprintf("dependency cycle detected: %s", strings.Join(e.Path, " -> "))
	case CodeLocationCollision:
		msg = fmt.Sprintf("artifact '%s' maps to a storage location that is already assigned", e.ArtifactID)
	default:
		msg = "validation failed"
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

// Is reports whether target is a ValidationError with the same code.
func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*ValidationError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// ValidationErrors is the collect-all result of a validation pass.
type ValidationErrors []*ValidationError

// Error implements the error interface, listing every finding.
func (v ValidationErrors) Error() string {
	if len(v) == 1 {
		return v[0].Error()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "pipeline validation failed with %d errors:", len(v))
	for _, e := range v {
		sb.WriteString("\n- ")
		sb.WriteString(e.Error())
	}
	return sb.String()
}

// Unwrap exposes each finding to errors.Is and errors.As.
func (v ValidationErrors) Unwrap() []error {
	errs := make([]error, len(v))
	for i, e := range v {
		errs[i] = e
	}
	return errs
}

// Err returns nil for an empty list, or the list itself as an error.
func (v ValidationErrors) Err() error {
	if len(v) == 0 {
		return nil
	}
	return v
}
