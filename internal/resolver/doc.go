// Package resolver annotates a stage graph with artifact producers, upstream
// closures and storage locations.
//
// The stage graph builder already guarantees acyclicity, but Resolve accepts
// any Graph implementation and re-validates it: unresolved inputs, duplicate
// producers and dependency cycles are all reported together as a
// pipeline.ValidationErrors.
//
// Locations are policy. The default Locator derives a slash-separated token
// from the artifact id and a blake3 digest, so the same definition always
// yields the same locations.
package resolver
