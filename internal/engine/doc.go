// Package engine executes a dependency graph.
//
// ARCHITECTURE:
//
// Single-Writer Scheduling Loop:
// The scheduler mutates instance states in a single goroutine. Workers only
// run the command and report a completion event back on a channel. This
// keeps state transitions linearizable without a lock and makes dispatch
// order deterministic for a given graph.
//
// Resource Ledger:
// Named capacity pools with atomic all-or-nothing multi-resource grants.
// Acquisition never blocks and never partially holds resources, so two
// instances contending for overlapping pools cannot deadlock each other.
//
// Command Runner:
// Fully substituted command lines run through the shell; a nonzero exit
// code is the sole failure signal. Failure cascades to descendants as
// skipped-failed while independent branches keep running.
package engine
