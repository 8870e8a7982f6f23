package graph

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/roach88/smartmake/internal/fetch"
	"github.com/roach88/smartmake/internal/model"
)

// Builder constructs dependency graphs from a validated specification.
type Builder struct {
	spec     *model.Spec
	root     string
	cacheDir string
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithCacheDir sets the directory where remote leaf files are cached.
// Default: ".smartmake.cache" under the build root.
func WithCacheDir(dir string) BuilderOption {
	return func(b *Builder) {
		b.cacheDir = dir
	}
}

// NewBuilder creates a Builder over the given spec, rooted at root.
// The spec must already have passed Validate; Build re-checks and refuses
// to construct a graph from an invalid spec.
func NewBuilder(spec *model.Spec, root string, opts ...BuilderOption) *Builder {
	b := &Builder{
		spec:     spec,
		root:     root,
		cacheDir: fetch.DefaultCacheDir(root),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build resolves the transitive producer closure of the target alias under
// each of the given bindings into a single deduplicated DAG of task
// instances.
//
// Multiple bindings come from multi-value parameters on the command line;
// requests that differ only in parameters irrelevant to a task collapse to
// one instance of it. Any configuration error (unknown name, missing
// binding, cycle, invalid spec) aborts the build before anything runs.
func (b *Builder) Build(target string, bindings []model.Binding) (*Graph, error) {
	if errs := b.spec.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid specification: %w", errors.Join(errs...))
	}
	if len(bindings) == 0 {
		bindings = []model.Binding{{}}
	}

	g := &Graph{
		Root:   b.root,
		nodes:  make(map[string]*Instance),
		leaves: make(map[string]*Leaf),
	}
	var creation []*Instance
	seenTargets := make(map[string]bool)

	for _, binding := range bindings {
		if err := b.checkBinding(binding); err != nil {
			return nil, err
		}
		visiting := make(map[string]bool)
		inst, _, err := b.produce(g, target, binding, visiting, &creation)
		if err != nil {
			return nil, err
		}
		if inst == nil {
			// The requested target must have a producing task; a target that
			// is only a pre-existing file has nothing to build.
			return nil, model.NewConfigError(model.ErrCodeNoProducer, target,
				"no task generates the requested target")
		}
		if !seenTargets[inst.Key] {
			seenTargets[inst.Key] = true
			g.targets = append(g.targets, inst)
		}
	}

	g.finish(creation)
	slog.Debug("graph built",
		"target", target,
		"bindings", len(bindings),
		"instances", g.Len(),
		"leaves", len(g.leaves),
	)
	return g, nil
}

// checkBinding verifies every bound name is a declared parameter and every
// value matches the parameter's declared kind.
func (b *Builder) checkBinding(binding model.Binding) error {
	for name, value := range binding {
		p, ok := b.spec.Parameter(name)
		if !ok {
			return model.NewConfigError(model.ErrCodeUnknownParameter, name,
				"bound parameter is not declared")
		}
		if err := p.CheckValue(value); err != nil {
			return err
		}
	}
	return nil
}

// produce resolves the request "make alias under binding" to either a task
// instance (alias has a producer) or a pre-existing leaf file.
//
// The instance is memoized on its identity key, so diamond dependencies
// collapse. A revisit of a key on the current recursion path is a cycle.
// The caller's full binding propagates to dependencies unchanged; only the
// instance's own identity and templates narrow to its relevant parameters.
func (b *Builder) produce(
	g *Graph,
	alias string,
	binding model.Binding,
	visiting map[string]bool,
	creation *[]*Instance,
) (*Instance, *Leaf, error) {
	file, ok := b.spec.File(alias)
	if !ok {
		return nil, nil, model.NewConfigError(model.ErrCodeUnknownAlias, alias,
			"no such file alias")
	}

	task, hasProducer := b.spec.Producer(alias)
	if !hasProducer {
		leaf, err := b.resolveLeaf(g, file, binding)
		return nil, leaf, err
	}

	relevant := b.spec.TaskParams(task)
	narrowed := binding.Narrow(relevant)
	if len(narrowed) < len(relevant) {
		var missing []string
		for _, name := range relevant {
			if _, bound := narrowed[name]; !bound {
				missing = append(missing, name)
			}
		}
		return nil, nil, model.NewConfigError(model.ErrCodeMissingBinding, task.Name,
			fmt.Sprintf("missing parameters: %v", missing))
	}

	key := IdentityKey(task.Name, narrowed)
	if visiting[key] {
		return nil, nil, model.NewConfigError(model.ErrCodeCycle, task.Name,
			fmt.Sprintf("dependency cycle through task %s[%s]", task.Name, narrowed))
	}
	if inst, exists := g.nodes[key]; exists {
		return inst, nil, nil
	}

	command, err := model.ExpandTemplate("task "+task.Name, task.Command, narrowed)
	if err != nil {
		return nil, nil, err
	}
	inst := &Instance{
		Key:     key,
		Name:    fmt.Sprintf("%s[%s]", task.Name, narrowed),
		Task:    task,
		Binding: narrowed,
		Command: command,
	}
	for _, outAlias := range task.Generates {
		outFile, _ := b.spec.File(outAlias)
		path, err := outFile.Resolve(b.root, narrowed)
		if err != nil {
			return nil, nil, err
		}
		inst.Outputs = append(inst.Outputs, path)
	}

	// Register before walking dependencies so the visiting set, not the
	// memo table, decides what a revisit on the current path means.
	g.nodes[key] = inst
	visiting[key] = true
	defer delete(visiting, key)

	for _, depAlias := range task.Dependencies {
		depInst, depLeaf, err := b.produce(g, depAlias, binding, visiting, creation)
		if err != nil {
			return nil, nil, err
		}
		switch {
		case depInst != nil:
			depFile, _ := b.spec.File(depAlias)
			depPath, err := depFile.Resolve(b.root, binding)
			if err != nil {
				return nil, nil, err
			}
			inst.DepFiles = appendUnique(inst.DepFiles, depPath)
			addEdge(depInst, inst)
		case depLeaf != nil:
			inst.DepFiles = appendUnique(inst.DepFiles, depLeaf.LocalPath)
		}
	}

	*creation = append(*creation, inst)
	return inst, nil, nil
}

// resolveLeaf handles a dependency alias with no producing task: either a
// pre-existing local file under the root or a remote URL fetched into the
// cache before scheduling. A producerless alias whose file is absent is a
// configuration error, not a silent skip.
func (b *Builder) resolveLeaf(g *Graph, file model.FileAlias, binding model.Binding) (*Leaf, error) {
	path, err := file.Resolve(b.root, binding)
	if err != nil {
		return nil, err
	}
	if leaf, exists := g.leaves[path]; exists {
		return leaf, nil
	}

	leaf := &Leaf{Alias: file.Name, Path: path, LocalPath: path}
	if model.IsRemote(path) {
		leaf.Remote = true
		leaf.LocalPath = fetch.CachePath(b.cacheDir, path)
	} else if _, err := os.Stat(path); err != nil {
		return nil, model.NewConfigError(model.ErrCodeNoProducer, file.Name,
			fmt.Sprintf("no task generates it and %s does not exist", path))
	}
	g.leaves[path] = leaf
	return leaf, nil
}

func addEdge(producer, consumer *Instance) {
	for _, p := range consumer.Producers {
		if p == producer {
			return
		}
	}
	consumer.Producers = append(consumer.Producers, producer)
	producer.Dependents = append(producer.Dependents, consumer)
}

func appendUnique(paths []string, path string) []string {
	for _, p := range paths {
		if p == path {
			return paths
		}
	}
	return append(paths, path)
}
