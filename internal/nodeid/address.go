// internal/nodeid/address.go
package nodeid

// String serializes the Address into its canonical `stage.action` form.
func (a Address) String() string {
	if a.IsZero() {
		return ""
	}
	return a.Stage + "." + a.Action
}

// Equal checks for equality between two Address pointers.
func (a *Address) Equal(other *Address) bool {
	if a == nil || other == nil {
		return a == other
	}
	return *a == *other
}
