// Package inmemorytopology provides a thread-safe, in-memory implementation
// of the topologystore.Store interface. Stage graphs are small, so the whole
// topology is kept in maps guarded by a single RWMutex.
package inmemorytopology
