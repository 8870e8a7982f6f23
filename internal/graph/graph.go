package graph

import (
	"sort"

	"github.com/roach88/smartmake/internal/model"
)

// Instance is a task definition bound to one concrete parameter assignment.
// All templates are resolved at construction; the scheduler only ever sees
// concrete commands and paths.
type Instance struct {
	// Key is the canonical identity hash (task name + narrowed binding).
	// Instances are deduplicated on it.
	Key string

	// Name is the human form, e.g. "GenerateF[a=1,b=2]". Unique per graph
	// and used for deterministic ordering, logs, and reports.
	Name string

	Task    *model.TaskDefinition
	Binding model.Binding // narrowed to the parameters the task references

	Command  string   // fully substituted command line
	Outputs  []string // resolved generated file paths
	DepFiles []string // resolved dependency file paths, leaves included

	// Producers and Dependents are the graph edges, deduplicated.
	Producers  []*Instance
	Dependents []*Instance

	// Stale is set by EvaluateStaleness: true means the instance must run.
	Stale bool

	// freshStamp is the effective freshness timestamp (unix nanoseconds)
	// used for downstream mtime comparisons once the instance is known
	// fresh. Full mtime precision matters: commands routinely finish
	// within one second of their inputs changing.
	freshStamp int64

	depth int
}

// Depth is the instance's topological depth: 0 for instances with no
// producer dependencies, 1 + max(producer depths) otherwise.
func (in *Instance) Depth() int { return in.depth }

// Leaf is a dependency file with no producing task, expected to pre-exist.
// Remote leaves are fetched into the local cache before staleness runs;
// LocalPath is where their bytes live on disk.
type Leaf struct {
	Alias     string
	Path      string // resolved path or remote URL
	Remote    bool
	LocalPath string // equals Path for local leaves, cache path for remote
}

// Graph is the DAG of task instances for one build request. Acyclicity is
// guaranteed by construction; a cycle aborts the build with a ConfigError.
type Graph struct {
	Root string

	nodes   map[string]*Instance // by identity key
	order   []*Instance          // (depth asc, name asc): topological and deterministic
	leaves  map[string]*Leaf     // by resolved path
	targets []*Instance          // producers of the requested target alias(es)
}

// Instances returns every instance in schedule order: topological (depth
// ascending) with lexicographic name tie-break. This is also the
// implementation-defined dispatch tie-break order.
func (g *Graph) Instances() []*Instance { return g.order }

// Leaves returns the pre-existing leaf files, sorted by path.
func (g *Graph) Leaves() []*Leaf {
	paths := make([]string, 0, len(g.leaves))
	for p := range g.leaves {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	out := make([]*Leaf, 0, len(paths))
	for _, p := range paths {
		out = append(out, g.leaves[p])
	}
	return out
}

// Targets returns the instances producing the requested target alias, one
// per requested binding combination (after deduplication).
func (g *Graph) Targets() []*Instance { return g.targets }

// Len returns the number of task instances.
func (g *Graph) Len() int { return len(g.nodes) }

// finish computes depths and freezes the deterministic schedule order.
// Called once by the builder; creation order is already topological
// (an instance is created only after all of its producers).
func (g *Graph) finish(creation []*Instance) {
	for _, in := range creation {
		in.depth = 0
		for _, p := range in.Producers {
			if p.depth+1 > in.depth {
				in.depth = p.depth + 1
			}
		}
	}
	g.order = make([]*Instance, len(creation))
	copy(g.order, creation)
	sort.Slice(g.order, func(i, j int) bool {
		a, b := g.order[i], g.order[j]
		if a.depth != b.depth {
			return a.depth < b.depth
		}
		return a.Name < b.Name
	})
}
