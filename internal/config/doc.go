// Package config defines the interface for loading pipeline definitions from
// configuration files, and a MultiLoader that dispatches files to the
// format-specific loader registered for their extension.
//
// Concrete formats live in separate packages: hclconfig for HCL and
// yamlconfig for YAML. Every loader produces the same format-agnostic
// pipeline.Definition values.
package config
