// internal/nodeid/types.go
package nodeid

// Address is the structured representation of a unique action identifier:
// the stage that declares the action and the action's own name.
//
// Address is a comparable value type and can be used as a map key.
type Address struct {
	Stage  string
	Action string
}

// New creates an address from its parts without validation.
func New(stage, action string) Address {
	return Address{Stage: stage, Action: action}
}

// IsZero reports whether the address is empty.
func (a Address) IsZero() bool {
	return a.Stage == "" && a.Action == ""
}
