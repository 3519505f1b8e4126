// Package stagegraph turns a pipeline definition into an immutable graph of
// actions.
//
// Build validates the definition and reports every structural problem at once.
// Nodes of the resulting Graph are actions, in declaration order. An edge runs
// from action A to action B when B consumes an artifact that A produces. The
// producer must live in an earlier stage than the consumer, which makes the
// graph acyclic by construction.
package stagegraph
