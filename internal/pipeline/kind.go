// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
package pipeline

import (
	"fmt"
	"strings"
)

// Kind tags an action as a source fetch, a build or a deployment.
type Kind int

const (
	// KindUnknown is the zero value and never valid in a definition.
	KindUnknown Kind = iota
	KindSource
	KindBuild
	KindDeploy
)

var kindNames = map[Kind]string{
	KindSource: "source",
	KindBuild:  "build",
	KindDeploy: "deploy",
}

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Valid reports whether k is one of the declared kinds.
func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// ParseKind parses a kind name case-insensitively.
func ParseKind(s string) (Kind, error) {
	needle := strings.ToLower(strings.TrimSpace(s))
	for k, name := range kindNames {
		if name == needle {
			return k, nil
		}
	}
	return KindUnknown, fmt.Errorf("unknown action kind %q: must be one of 'source', 'build', 'deploy'", s)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("cannot marshal unknown action kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
