// Package graph builds the concrete dependency graph for a build request:
// task instances (a task definition bound to the subset of parameters its
// templates reference), the edges between producers and consumers, the
// pre-existing leaf files, and the per-instance staleness annotations the
// scheduler consumes.
//
// Construction is entirely offline: no command runs, and every configuration
// error (unknown name, missing binding, cycle) is surfaced before the
// scheduler sees the graph.
package graph
