package model

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// FileAlias gives a symbolic name to a parameterized file path. Resolving
// the alias under a binding yields a concrete path; two different bindings
// of the same alias are different concrete files.
type FileAlias struct {
	Name         string
	PathTemplate string
}

// IsRemote reports whether the resolved path would be a remote URL rather
// than a path under the build root. Remote files can only appear as leaf
// dependencies; they are fetched into the local cache before scheduling.
func IsRemote(path string) bool {
	return strings.HasPrefix(path, "https://") ||
		strings.HasPrefix(path, "http://") ||
		strings.HasPrefix(path, "s3://")
}

// Resolve expands the alias's path template under the binding and anchors it
// at the build root. Remote URLs are returned as-is.
func (f FileAlias) Resolve(root string, binding Binding) (string, error) {
	path, err := ExpandTemplate("file "+f.Name, f.PathTemplate, binding)
	if err != nil {
		return "", err
	}
	if IsRemote(path) {
		return path, nil
	}
	return filepath.Join(root, path), nil
}

// Resource declares a named pool of interchangeable units. Capacity is the
// number of units that may be held concurrently across all running tasks.
type Resource struct {
	Name     string
	Capacity int
}

// TaskDefinition is a node of the parameterized graph: a command template
// plus the file aliases it consumes and produces, and the resource units it
// must hold while running.
type TaskDefinition struct {
	Name    string
	Command string

	// Uses lists required resource names. A name repeated n times requests
	// n units of that pool.
	Uses []string

	// Dependencies and Generates are file alias names.
	Dependencies []string
	Generates    []string
}

// ResourceNeeds aggregates the Uses list into per-resource unit counts.
func (t TaskDefinition) ResourceNeeds() map[string]int {
	if len(t.Uses) == 0 {
		return nil
	}
	needs := make(map[string]int, len(t.Uses))
	for _, name := range t.Uses {
		needs[name]++
	}
	return needs
}

// Spec is the fully validated specification model handed to the core by the
// document loader. All later lookups are by validated identifiers.
type Spec struct {
	Parameters []Parameter
	Files      []FileAlias
	Resources  []Resource
	Tasks      []TaskDefinition

	paramIndex    map[string]Parameter
	fileIndex     map[string]FileAlias
	resourceIndex map[string]Resource
	taskIndex     map[string]*TaskDefinition
	producerIndex map[string]*TaskDefinition
}

// ensureIndex builds the lookup maps. Safe to call repeatedly; the model is
// not mutated after load.
func (s *Spec) ensureIndex() {
	if s.paramIndex != nil {
		return
	}
	s.paramIndex = make(map[string]Parameter, len(s.Parameters))
	for _, p := range s.Parameters {
		s.paramIndex[p.Name] = p
	}
	s.fileIndex = make(map[string]FileAlias, len(s.Files))
	for _, f := range s.Files {
		s.fileIndex[f.Name] = f
	}
	s.resourceIndex = make(map[string]Resource, len(s.Resources))
	for _, r := range s.Resources {
		s.resourceIndex[r.Name] = r
	}
	s.taskIndex = make(map[string]*TaskDefinition, len(s.Tasks))
	s.producerIndex = make(map[string]*TaskDefinition)
	for i := range s.Tasks {
		t := &s.Tasks[i]
		s.taskIndex[t.Name] = t
		for _, alias := range t.Generates {
			// First producer wins here; Validate reports the duplicate.
			if _, exists := s.producerIndex[alias]; !exists {
				s.producerIndex[alias] = t
			}
		}
	}
}

// Parameter looks up a declared parameter by name.
func (s *Spec) Parameter(name string) (Parameter, bool) {
	s.ensureIndex()
	p, ok := s.paramIndex[name]
	return p, ok
}

// File looks up a declared file alias by name.
func (s *Spec) File(name string) (FileAlias, bool) {
	s.ensureIndex()
	f, ok := s.fileIndex[name]
	return f, ok
}

// Resource looks up a declared resource pool by name.
func (s *Spec) Resource(name string) (Resource, bool) {
	s.ensureIndex()
	r, ok := s.resourceIndex[name]
	return r, ok
}

// Task looks up a task definition by name.
func (s *Spec) Task(name string) (*TaskDefinition, bool) {
	s.ensureIndex()
	t, ok := s.taskIndex[name]
	return t, ok
}

// Producer returns the task that generates the given alias, if any.
// The single-producer invariant is enforced by Validate.
func (s *Spec) Producer(alias string) (*TaskDefinition, bool) {
	s.ensureIndex()
	t, ok := s.producerIndex[alias]
	return t, ok
}

// TaskParams returns the sorted set of parameter names referenced by any of
// the task's templates: its command, its generated paths, and its dependency
// paths. This is the set an instance's identity narrows to.
func (s *Spec) TaskParams(t *TaskDefinition) []string {
	s.ensureIndex()
	seen := make(map[string]bool)
	add := func(tmpl string) {
		for _, name := range TemplateParams(tmpl) {
			seen[name] = true
		}
	}
	add(t.Command)
	for _, alias := range t.Generates {
		if f, ok := s.fileIndex[alias]; ok {
			add(f.PathTemplate)
		}
	}
	for _, alias := range t.Dependencies {
		if f, ok := s.fileIndex[alias]; ok {
			add(f.PathTemplate)
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks the structural invariants of the specification and
// returns every violation found (collect-all, so a user can fix a document
// in one pass). A nil result means the spec is valid.
//
// Enforced invariants:
//   - resource capacities are non-negative
//   - every alias is generated by at most one task
//   - task dependency/generates references name declared aliases
//   - task resource references name declared pools
//   - no single task requests more units than a pool's total capacity
//   - every template placeholder names a declared parameter
func (s *Spec) Validate() []error {
	s.ensureIndex()
	var errs []error

	for _, r := range s.Resources {
		if r.Capacity < 0 {
			errs = append(errs, NewConfigError(ErrCodeBadCapacity, r.Name,
				fmt.Sprintf("capacity %d is negative", r.Capacity)))
		}
	}

	for _, f := range s.Files {
		errs = append(errs, s.checkTemplateParams("file "+f.Name, f.PathTemplate)...)
	}

	producers := make(map[string]string) // alias -> producing task name
	for _, t := range s.Tasks {
		errs = append(errs, s.checkTemplateParams("task "+t.Name, t.Command)...)

		for _, alias := range t.Generates {
			if _, ok := s.fileIndex[alias]; !ok {
				errs = append(errs, NewConfigError(ErrCodeUnknownAlias, alias,
					fmt.Sprintf("task %s generates undeclared file", t.Name)))
				continue
			}
			if prev, dup := producers[alias]; dup {
				errs = append(errs, NewConfigError(ErrCodeDuplicateProducer, alias,
					fmt.Sprintf("generated by both %s and %s", prev, t.Name)))
				continue
			}
			producers[alias] = t.Name
		}

		for _, alias := range t.Dependencies {
			if _, ok := s.fileIndex[alias]; !ok {
				errs = append(errs, NewConfigError(ErrCodeUnknownAlias, alias,
					fmt.Sprintf("task %s depends on undeclared file", t.Name)))
			}
		}

		for name, count := range t.ResourceNeeds() {
			pool, ok := s.resourceIndex[name]
			if !ok {
				errs = append(errs, NewConfigError(ErrCodeUnknownResource, name,
					fmt.Sprintf("task %s uses undeclared resource", t.Name)))
				continue
			}
			if count > pool.Capacity {
				errs = append(errs, NewConfigError(ErrCodeExcessResources, name,
					fmt.Sprintf("task %s requests %d units, pool capacity is %d",
						t.Name, count, pool.Capacity)))
			}
		}
	}

	return errs
}

// checkTemplateParams verifies every placeholder names a declared parameter.
func (s *Spec) checkTemplateParams(context, tmpl string) []error {
	var errs []error
	for _, name := range TemplateParams(tmpl) {
		if _, ok := s.paramIndex[name]; !ok {
			errs = append(errs, NewConfigError(ErrCodeUnknownParameter, name,
				fmt.Sprintf("%s references undeclared parameter", context)))
		}
	}
	return errs
}
