package graph

import (
	"fmt"
	"log/slog"
	"math"
	"os"

	"github.com/stevenle/topsort"
)

// Policy selects how staleness is decided.
type Policy int

const (
	// MissingOnly marks an instance stale iff at least one of its generated
	// files does not exist. The default.
	MissingOnly Policy = iota

	// RedoIfModified additionally marks an instance stale when any
	// generated file is older than any dependency file. Classic make.
	RedoIfModified
)

// String implements fmt.Stringer.
func (p Policy) String() string {
	if p == RedoIfModified {
		return "redo-if-modified"
	}
	return "missing-only"
}

// foreverFresh is the freshness stamp of an instance that is about to run:
// its future output is newer than anything currently on disk.
const foreverFresh = int64(math.MaxInt64)

// EvaluateStaleness annotates every instance with its Stale flag before
// scheduling begins.
//
// The pass walks the graph in topological order (producers first) so that
// transitive forcing works: an instance whose producer is stale is itself
// forced stale, regardless of what its own files' timestamps say, because
// the producer's output is about to change. A stale leaf deep in the graph
// therefore forces rebuilds arbitrarily far downstream.
//
// Remote leaves must already be fetched into the cache; a missing leaf file
// at this point is an error.
func EvaluateStaleness(g *Graph, policy Policy) error {
	order, err := topoOrder(g)
	if err != nil {
		return err
	}

	leafStamp := make(map[string]int64) // dep file path -> mtime
	for _, leaf := range g.Leaves() {
		info, err := os.Stat(leaf.LocalPath)
		if err != nil {
			return fmt.Errorf("leaf file %s (%s): %w", leaf.Alias, leaf.LocalPath, err)
		}
		leafStamp[leaf.LocalPath] = info.ModTime().UnixNano()
	}

	outputStamp := make(map[string]int64) // instance output path -> freshness stamp
	for _, in := range order {
		in.Stale, in.freshStamp = evaluateInstance(in, policy, leafStamp, outputStamp)
		for _, out := range in.Outputs {
			outputStamp[out] = in.freshStamp
		}
		if in.Stale {
			slog.Debug("instance stale", "instance", in.Name, "policy", policy.String())
		}
	}
	return nil
}

// evaluateInstance decides one instance, producers already decided.
func evaluateInstance(in *Instance, policy Policy, leafStamp, outputStamp map[string]int64) (bool, int64) {
	// A producer that will run forces this instance stale.
	for _, p := range in.Producers {
		if p.Stale {
			return true, foreverFresh
		}
	}

	oldestOutput := foreverFresh
	for _, out := range in.Outputs {
		info, err := os.Stat(out)
		if err != nil {
			return true, foreverFresh // missing output
		}
		if t := info.ModTime().UnixNano(); t < oldestOutput {
			oldestOutput = t
		}
	}

	if policy == RedoIfModified {
		for _, dep := range in.DepFiles {
			stamp, ok := outputStamp[dep]
			if !ok {
				stamp = leafStamp[dep]
			}
			if stamp > oldestOutput {
				return true, foreverFresh
			}
		}
	}

	// Fresh: downstream comparisons see the newest generated file.
	newest := int64(0)
	for _, out := range in.Outputs {
		if info, err := os.Stat(out); err == nil {
			if t := info.ModTime().UnixNano(); t > newest {
				newest = t
			}
		}
	}
	return false, newest
}

// buildRoot is the synthetic sort root tying all requested targets together
// so one TopSort call orders the whole graph.
const buildRoot = "//build"

// topoOrder returns the instances producers-first. The graph is acyclic by
// construction; the sorter's cycle error is surfaced anyway rather than
// swallowed.
func topoOrder(g *Graph) ([]*Instance, error) {
	byKey := make(map[string]*Instance, g.Len())
	tg := topsort.NewGraph()
	for _, in := range g.Instances() {
		byKey[in.Key] = in
		tg.AddNode(in.Key)
		if err := tg.AddEdge(buildRoot, in.Key); err != nil {
			return nil, fmt.Errorf("topological sort: %w", err)
		}
	}
	for _, in := range g.Instances() {
		for _, p := range in.Producers {
			if err := tg.AddEdge(in.Key, p.Key); err != nil {
				return nil, fmt.Errorf("topological sort: %w", err)
			}
		}
	}

	sorted, err := tg.TopSort(buildRoot)
	if err != nil {
		return nil, fmt.Errorf("topological sort: %w", err)
	}
	order := make([]*Instance, 0, g.Len())
	for _, key := range sorted {
		if in, ok := byKey[key]; ok {
			order = append(order, in)
		}
	}
	return order, nil
}
