// Package handlers maps the `uses` name of an action to the Go code that
// performs it.
//
// Modules register their handlers once at startup. Registration is a
// programming-time concern, so registering a name twice panics. Before a run
// starts, Validate checks that every action of the plan names a registered
// handler, so that a typo fails the run before any side effect happens.
package handlers

//go:generate mockgen -destination=mocks/mock_handler.go -package=mocks github.com/specialistvlad/stageplan/internal/handlers Handler
