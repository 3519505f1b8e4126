// internal/nodeid/parser.go
package nodeid

import (
	"fmt"
	"regexp"
	"strings"
)

// nameRegex matches a single stage or action name.
var nameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidName reports whether name may be used as a stage or action name.
func ValidName(name string) bool {
	if name == "-" || name == "_" {
		return false
	}
	return nameRegex.MatchString(name)
}

// Parse creates a new Address by parsing its canonical string representation.
func Parse(rawID string) (*Address, error) {
	if rawID == "" {
		return nil, fmt.Errorf("identifier cannot be empty")
	}

	parts := strings.Split(rawID, ".")
	if len(parts) != 2 {
		return nil, fmt.Errorf("identifier %q must have the form 'stage.action'", rawID)
	}
	for _, p := range parts {
		if p == "" {
			return nil, fmt.Errorf("identifier %q contains an empty segment", rawID)
		}
		if !ValidName(p) {
			return nil, fmt.Errorf("invalid segment name: %q", p)
		}
	}

	return &Address{Stage: parts[0], Action: parts[1]}, nil
}

// MustParse is like Parse but panics on error. It is intended for tests and
// static initialization.
func MustParse(rawID string) Address {
	addr, err := Parse(rawID)
	if err != nil {
		panic(err)
	}
	return *addr
}
