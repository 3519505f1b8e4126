// internal/nodeid/doc.go

/*
Package nodeid provides a structured, type-safe identifier for actions within
a pipeline, based on the canonical format `stage.action`.

Stage and action names are restricted to letters, digits, underscores and
hyphens, so the single dot separator is never ambiguous.

This package centralizes all formatting and parsing of action identifiers.
*/
package nodeid
