package engine

import (
	"sync"

	"github.com/google/uuid"

	"github.com/roach88/smartmake/internal/graph"
)

// RunTokenGenerator produces run identifiers for execution reports.
// Implemented by UUIDv7Generator (production) and FixedGenerator (tests).
type RunTokenGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 run tokens, so report
// identifiers sort by start time in logs.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 as a hyphenated string.
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined run tokens for deterministic tests.
type FixedGenerator struct {
	mu     sync.Mutex
	tokens []string
	idx    int
}

// NewFixedGenerator creates a generator that returns tokens in order and
// panics when exhausted, to catch test misconfiguration fast.
func NewFixedGenerator(tokens ...string) *FixedGenerator {
	return &FixedGenerator{tokens: tokens}
}

// Generate returns the next predetermined token.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.idx >= len(g.tokens) {
		panic("FixedGenerator: all tokens exhausted")
	}
	token := g.tokens[g.idx]
	g.idx++
	return token
}

// InstanceResult is the final outcome of one task instance.
type InstanceResult struct {
	Instance *graph.Instance
	State    State

	// ExitCode is the command's exit code when State is Failed, 0 otherwise.
	ExitCode int

	// LaunchErr is set when the command could not be started at all.
	LaunchErr error
}

// Report is the outcome of one scheduler run. The run succeeds iff no
// instance ended Failed; skipped-fresh instances are success, skipped-failed
// ones are collateral of a failure recorded in Failed().
type Report struct {
	RunID string

	// Results holds one entry per instance, in the graph's schedule order.
	Results []InstanceResult

	// Err is a run-level error (context cancellation), nil otherwise.
	Err error
}

// OK reports whether the run succeeded.
func (r *Report) OK() bool {
	if r.Err != nil {
		return false
	}
	for _, res := range r.Results {
		if res.State == Failed {
			return false
		}
	}
	return true
}

// Failed returns the results of instances whose command failed.
func (r *Report) Failed() []InstanceResult {
	return r.withState(Failed)
}

// SkippedFailed returns the results of instances never dispatched because
// an ancestor failed.
func (r *Report) SkippedFailed() []InstanceResult {
	return r.withState(SkippedFailed)
}

// Executed returns the results of instances whose command actually ran,
// whatever the outcome.
func (r *Report) Executed() []InstanceResult {
	var out []InstanceResult
	for _, res := range r.Results {
		if res.State == Succeeded || res.State == Failed {
			out = append(out, res)
		}
	}
	return out
}

func (r *Report) withState(s State) []InstanceResult {
	var out []InstanceResult
	for _, res := range r.Results {
		if res.State == s {
			out = append(out, res)
		}
	}
	return out
}
