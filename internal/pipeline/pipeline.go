// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the Definition, Stage and Action structures, the
// user-facing shape of a deployment pipeline.
//
// A Definition is built once from configuration and never mutated after that.
// Every derived structure (graph, resolved graph, execution plan) is
// recomputed from it in full.
package pipeline

import "strings"

// Definition is an ordered sequence of stages that together describe one
// deployment pipeline.
type Definition struct {
	Name   string  `json:"name"`
	Stages []Stage `json:"stages"`

	// SourceFile records where the definition was loaded from, if anywhere.
	SourceFile string `json:"-"`
}

// Stage is a named, ordered group of actions. It is the coarse unit of
// sequential progress: artifacts only flow from one stage into later ones.
type Stage struct {
	Name    string   `json:"name"`
	Actions []Action `json:"actions"`
}

// Action is a single unit of work with declared input and output artifacts.
type Action struct {
	Name string `json:"name"`
	Kind Kind   `json:"kind"`
	// Uses names the handler that performs the action at run time.
	Uses    string        `json:"uses,omitempty"`
	Inputs  []ArtifactRef `json:"inputs,omitempty"`
	Outputs []ArtifactRef `json:"outputs,omitempty"`
	// Config holds opaque parameters passed through to the executor.
	Config map[string]any `json:"config,omitempty"`
	// Secrets maps a parameter name to a secret reference such as
	// "env:GITHUB_TOKEN". Values are resolved by the executor only.
	Secrets map[string]string `json:"secrets,omitempty"`
}

// ArtifactRef names a unit of data exchanged between actions. Two refs with
// the same ID denote the same artifact.
type ArtifactRef struct {
	ID string `json:"id"`
	// ProducedBy is the name of the producing action. Empty until resolved.
	ProducedBy string `json:"producedBy,omitempty"`
}

// Ref is a shorthand for an unresolved ArtifactRef.
func Ref(id string) ArtifactRef {
	return ArtifactRef{ID: id}
}

// Refs converts a list of artifact ids into unresolved refs.
func Refs(ids ...string) []ArtifactRef {
	if len(ids) == 0 {
		return nil
	}
	refs := make([]ArtifactRef, 0, len(ids))
	for _, id := range ids {
		refs = append(refs, Ref(id))
	}
	return refs
}

// UniqueRefs returns refs with duplicate ids removed, keeping the first
// occurrence of each id. Input and output lists behave as sets.
func UniqueRefs(refs []ArtifactRef) []ArtifactRef {
	if len(refs) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(refs))
	out := make([]ArtifactRef, 0, len(refs))
	for _, r := range refs {
		if _, ok := seen[r.ID]; ok {
			continue
		}
		seen[r.ID] = struct{}{}
		out = append(out, r)
	}
	return out
}

// IDs returns the artifact ids of refs, in order.
func IDs(refs []ArtifactRef) []string {
	ids := make([]string, 0, len(refs))
	for _, r := range refs {
		ids = append(ids, r.ID)
	}
	return ids
}

// ActionCount returns the total number of actions across all stages.
func (d *Definition) ActionCount() int {
	n := 0
	for _, s := range d.Stages {
		n += len(s.Actions)
	}
	return n
}

// Clone returns a deep copy of the action. Config values are copied one
// level deep; nested values are treated as immutable.
func (a Action) Clone() Action {
	c := a
	c.Inputs = append([]ArtifactRef(nil), a.Inputs...)
	c.Outputs = append([]ArtifactRef(nil), a.Outputs...)
	if a.Config != nil {
		c.Config = make(map[string]any, len(a.Config))
		for k, v := range a.Config {
			c.Config[k] = v
		}
	}
	if a.Secrets != nil {
		c.Secrets = make(map[string]string, len(a.Secrets))
		for k, v := range a.Secrets {
			c.Secrets[k] = v
		}
	}
	return c
}

// String renders an action as "name(kind)".
func (a Action) String() string {
	var sb strings.Builder
	sb.WriteString(a.Name)
	sb.WriteByte('(')
	sb.WriteString(a.Kind.String())
	sb.WriteByte(')')
	return sb.String()
}
