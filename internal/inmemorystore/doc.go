// Package inmemorystore provides an ephemeral, thread-safe, in-memory
// implementation of the nodestore.Store interface.
//
// Each kind of state lives in its own sync.Map. The key space (all actions of
// the plan) is known up front while values change frequently, which is the
// access pattern sync.Map is built for.
//
// This store is the default for local runs. Use sqlitestore when run state
// must survive the process.
package inmemorystore
