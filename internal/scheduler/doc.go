// Package scheduler gates the release of execution plan waves.
//
// # Why Scheduler Exists
//
// A plan only promises that every action of wave N may run once all earlier
// waves have succeeded. The scheduler is the component that keeps that
// promise at run time, separating "what may run now" from "how to run it"
// (the executor).
//
// # How It Works
//
//  1. ReadyWaves opens wave 0, marks its actions Running and emits it.
//  2. The executor runs the wave and reports one outcome per action.
//  3. When every action of the open wave reported success the next wave is
//     opened and emitted.
//  4. A failed or cancelled outcome, or cancellation of the context, halts
//     the gate. No further wave is emitted and every action of the unreleased
//     waves is marked Skipped.
//  5. The channel is closed once the last wave completes or the gate halts.
//
// Outcomes are validated on the way in: duplicate reports and reports for
// actions outside the open wave are rejected, and a success that does not
// confirm every declared output is recorded as a MISSING_OUTPUT failure.
package scheduler
