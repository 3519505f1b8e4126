// Package localexecutor provides a concrete, in-process implementation of the
// executor.Executor interface.
//
// The executor consumes waves from a scheduler. Every wave runs on a bounded
// worker pool; each action is dispatched to its registered handler with its
// secrets resolved and its artifact directories prepared below the
// workspace. One outcome per action is reported back to the scheduler, which
// decides whether the next wave is released.
package localexecutor
