// Package planner linearises a resolved stage graph into waves.
//
// A wave is a set of actions with no dependency among them. Waves are
// produced by Kahn-style layering: wave k holds every action whose direct
// dependencies were all placed in earlier waves. Inside a wave, actions keep
// their declaration order, so identical input always yields a byte-identical
// plan.
//
// Stages only influence the plan through artifact edges. Two actions from
// different stages share a wave whenever no artifact links them.
package planner
