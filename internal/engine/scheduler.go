package engine

import (
	"context"
	"log/slog"

	"github.com/roach88/smartmake/internal/graph"
)

// Scheduler drives task instances through their lifecycle: pending
// instances become ready as producers finish, ready instances are dispatched
// under the parallelism cap once the ledger grants their resources, and
// failures cascade to descendants without touching independent branches.
//
// CRITICAL: all state mutations happen in the single Run loop goroutine.
// Workers only execute the command and report back on a channel, so state
// transitions are linearizable without a lock.
type Scheduler struct {
	ledger      *Ledger
	runner      CommandRunner
	tokens      RunTokenGenerator
	maxParallel int
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithRunner overrides the command runner. Tests use RunnerFunc here.
func WithRunner(r CommandRunner) SchedulerOption {
	return func(s *Scheduler) {
		s.runner = r
	}
}

// WithRunTokens overrides the run token generator (for deterministic tests).
func WithRunTokens(g RunTokenGenerator) SchedulerOption {
	return func(s *Scheduler) {
		s.tokens = g
	}
}

// NewScheduler creates a scheduler over the given ledger with at most
// maxParallel concurrently running instances. maxParallel below 1 is
// clamped to 1.
func NewScheduler(ledger *Ledger, maxParallel int, opts ...SchedulerOption) *Scheduler {
	if maxParallel < 1 {
		maxParallel = 1
	}
	s := &Scheduler{
		ledger:      ledger,
		runner:      ShellRunner{},
		tokens:      UUIDv7Generator{},
		maxParallel: maxParallel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// completionEvent is a worker's report back to the Run loop.
type completionEvent struct {
	inst      *graph.Instance
	exitCode  int
	launchErr error
}

// Run executes the graph and returns the per-instance report.
//
// Instances staleness marked fresh are skipped up front without resource
// acquisition but still satisfy their dependents. Resource acquisition is
// non-blocking; denied instances stay ready and are revisited whenever a
// running instance completes or a grant is released. An instance never
// starts before every producer reached Succeeded or SkippedFresh.
//
// On context cancellation no new work is dispatched; in-flight commands are
// cancelled through their context and the remaining instances are marked
// skipped-failed.
func (s *Scheduler) Run(ctx context.Context, g *graph.Graph) *Report {
	runID := s.tokens.Generate()
	log := slog.With("run", runID)
	log.Info("run starting",
		"instances", g.Len(),
		"parallelism", s.maxParallel,
	)

	states := make(map[*graph.Instance]State, g.Len())
	exitCodes := make(map[*graph.Instance]int)
	launchErrs := make(map[*graph.Instance]error)
	grants := make(map[*graph.Instance]*Grant)
	completion := make(chan completionEvent)
	running := 0
	var runErr error

	for _, in := range g.Instances() {
		if in.Stale {
			states[in] = Pending
		} else {
			states[in] = SkippedFresh
			log.Debug("instance fresh, skipping", "instance", in.Name)
		}
	}

loop:
	for {
		s.promoteReady(g, states)
		s.dispatch(ctx, g, states, grants, &running, completion, log)

		if !anyLive(states) && running == 0 {
			break
		}
		if running == 0 {
			// Ready instances remain, nothing runs, and the ledger is idle:
			// a request no pool can ever satisfy. Spec validation rejects
			// those up front, so this path only guards against a ledger
			// that was constructed from a different spec.
			log.Error("scheduler stalled: ready instances cannot acquire resources")
			s.cascadeStall(states)
			break
		}

		select {
		case <-ctx.Done():
			runErr = ctx.Err()
			log.Info("run cancelled, draining in-flight instances", "running", running)
			for running > 0 {
				ev := <-completion
				s.handleCompletion(ev, states, exitCodes, launchErrs, grants, &running, log)
			}
			s.cascadeStall(states)
			break loop

		case ev := <-completion:
			s.handleCompletion(ev, states, exitCodes, launchErrs, grants, &running, log)

		case <-s.ledger.Wait():
			// A grant came back; retry denied ready instances.
		}
	}

	report := &Report{RunID: runID, Err: runErr}
	for _, in := range g.Instances() {
		report.Results = append(report.Results, InstanceResult{
			Instance:  in,
			State:     states[in],
			ExitCode:  exitCodes[in],
			LaunchErr: launchErrs[in],
		})
	}
	log.Info("run finished", "ok", report.OK(),
		"executed", len(report.Executed()),
		"failed", len(report.Failed()),
	)
	return report
}

// promoteReady moves pending instances whose producers are all terminal-ok
// to ready.
func (s *Scheduler) promoteReady(g *graph.Graph, states map[*graph.Instance]State) {
	for _, in := range g.Instances() {
		if states[in] != Pending {
			continue
		}
		ready := true
		for _, p := range in.Producers {
			if !states[p].satisfiesDependents() {
				ready = false
				break
			}
		}
		if ready {
			states[in] = Ready
		}
	}
}

// dispatch launches as many ready instances as parallelism and resources
// allow. Candidates are visited in the graph's schedule order, which is the
// documented deterministic tie-break. A denied instance stays ready.
func (s *Scheduler) dispatch(
	ctx context.Context,
	g *graph.Graph,
	states map[*graph.Instance]State,
	grants map[*graph.Instance]*Grant,
	running *int,
	completion chan<- completionEvent,
	log *slog.Logger,
) {
	if ctx.Err() != nil {
		return
	}
	for _, in := range g.Instances() {
		if *running >= s.maxParallel {
			return
		}
		if states[in] != Ready {
			continue
		}
		grant, ok := s.ledger.TryAcquire(in.Task.ResourceNeeds())
		if !ok {
			log.Debug("resources denied, instance stays ready", "instance", in.Name)
			continue
		}
		states[in] = Running
		grants[in] = grant
		*running++
		log.Info("running", "instance", in.Name, "command", in.Command)

		go func(in *graph.Instance) {
			code, err := s.runner.Run(ctx, in.Command)
			completion <- completionEvent{inst: in, exitCode: code, launchErr: err}
		}(in)
	}
}

// handleCompletion finalizes one instance: release its grant, record the
// outcome, and on failure mark every transitive descendant skipped-failed.
func (s *Scheduler) handleCompletion(
	ev completionEvent,
	states map[*graph.Instance]State,
	exitCodes map[*graph.Instance]int,
	launchErrs map[*graph.Instance]error,
	grants map[*graph.Instance]*Grant,
	running *int,
	log *slog.Logger,
) {
	in := ev.inst
	s.ledger.Release(grants[in])
	delete(grants, in)
	*running--

	if ev.launchErr != nil {
		states[in] = Failed
		launchErrs[in] = ev.launchErr
		log.Error("command could not be launched",
			"instance", in.Name, "error", ev.launchErr)
		s.cascadeFailure(in, states, log)
		return
	}
	if ev.exitCode != 0 {
		states[in] = Failed
		exitCodes[in] = ev.exitCode
		log.Error("command failed",
			"instance", in.Name, "exit_code", ev.exitCode)
		s.cascadeFailure(in, states, log)
		return
	}
	states[in] = Succeeded
	log.Info("succeeded", "instance", in.Name)
}

// cascadeFailure marks every instance reachable from a failed one as
// skipped-failed. Failure propagates downstream only; siblings and
// independent branches keep running.
func (s *Scheduler) cascadeFailure(failed *graph.Instance, states map[*graph.Instance]State, log *slog.Logger) {
	for _, dep := range failed.Dependents {
		if states[dep].Terminal() || states[dep] == Running {
			continue
		}
		states[dep] = SkippedFailed
		log.Info("skipped: ancestor failed", "instance", dep.Name, "ancestor", failed.Name)
		s.cascadeFailure(dep, states, log)
	}
}

// cascadeStall marks every non-terminal instance skipped-failed. Used when
// the run is cancelled or stalled.
func (s *Scheduler) cascadeStall(states map[*graph.Instance]State) {
	for in, st := range states {
		if !st.Terminal() {
			states[in] = SkippedFailed
		}
	}
}

// anyLive reports whether any instance is still pending or ready.
func anyLive(states map[*graph.Instance]State) bool {
	for _, st := range states {
		if st == Pending || st == Ready {
			return true
		}
	}
	return false
}
