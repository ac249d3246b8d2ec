// Package stepflow is a small declarative workflow engine: a Machine is a
// named set of States — tasks, choices, and parallel fan-outs — reached
// from a head state and driven until a state reports no successor.
//
// Machines are usually assembled with MachineBuilder, whose Task/Choice/
// Parallel methods mirror the state kinds below. ChoiceState statements are
// compiled once by the choice subpackage into an interpreter tree, cached
// on disk keyed by a content hash so repeated builds skip recompilation.
// ParallelState runs each branch as an independent Machine and joins on all
// of them before advancing.
//
// Observers (see Observer and ObserverManager) are the engine's sole
// extension point for logging and metrics; the engine itself never writes
// to a logger directly.
package stepflow
