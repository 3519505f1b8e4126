// Package sqlitestore persists run history and per-action run state in a
// SQLite database through the pure-Go modernc.org/sqlite driver.
//
// Two tables are maintained:
//
//	runs          one row per run: pipeline, plan fingerprint, status, timestamps
//	action_state  one row per action per run: status, confirmed outputs, error
//
// Store implements nodestore.Store for a single run and can replace the
// in-memory store whenever run state must outlive the process.
package sqlitestore
