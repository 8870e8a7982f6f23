package cli

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/roach88/smartmake/internal/engine"
	"github.com/roach88/smartmake/internal/fetch"
	"github.com/roach88/smartmake/internal/graph"
	"github.com/roach88/smartmake/internal/model"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Sets           []string
	RedoIfModified bool
	Parallelism    int

	// Runner and Tokens allow overriding the command runner and run token
	// generator (for testing). Nil selects the production implementations.
	Runner engine.CommandRunner
	Tokens engine.RunTokenGenerator
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <target>",
		Short: "Build a target and everything it depends on",
		Long: `Build the named target under the given parameter bindings.

Tasks whose outputs are already fresh are skipped. A parameter bound to
several values multiplies the request into the cross-product of all
multi-valued parameters, deduplicated into one graph.

Example:
  smartmake run h_abc --set a=1 --set b=2 --set c=3 -j 4
  smartmake run model --set epoch=1 --set epoch=2 --redo-if-modified`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Sets, "set", nil,
		"bind a parameter, name=value (repeatable; repeats of one name multiply the request)")
	cmd.Flags().BoolVar(&opts.RedoIfModified, "redo-if-modified", false,
		"rebuild outputs older than their dependencies, not just missing ones")
	cmd.Flags().IntVarP(&opts.Parallelism, "parallelism", "j", 1,
		"maximum number of concurrently running tasks")

	return cmd
}

func runBuild(opts *RunOptions, target string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, spec, err := prepareGraph(ctx, opts.RootOptions, target, opts.Sets, opts.RedoIfModified)
	if err != nil {
		return err
	}

	ledger := engine.NewLedger(spec.Resources)
	schedOpts := []engine.SchedulerOption{}
	if opts.Runner != nil {
		schedOpts = append(schedOpts, engine.WithRunner(opts.Runner))
	}
	if opts.Tokens != nil {
		schedOpts = append(schedOpts, engine.WithRunTokens(opts.Tokens))
	}
	sched := engine.NewScheduler(ledger, opts.Parallelism, schedOpts...)

	report := sched.Run(ctx, g)
	printReport(cmd.OutOrStdout(), report)
	if !report.OK() {
		return NewExitError(ExitFailure,
			fmt.Sprintf("build failed: %d instance(s) failed", len(report.Failed())))
	}
	return nil
}

// prepareGraph is the shared front half of run and plan: load the spec,
// build the graph, fetch remote leaves, and annotate staleness.
func prepareGraph(
	ctx context.Context,
	rootOpts *RootOptions,
	target string,
	sets []string,
	redoIfModified bool,
) (*graph.Graph, *model.Spec, error) {
	spec, err := LoadSpec(rootOpts.SpecFile)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to load spec", err)
	}
	bindings, err := ParseBindings(sets)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to parse bindings", err)
	}

	builder := graph.NewBuilder(spec, rootOpts.RootPath)
	g, err := builder.Build(target, bindings)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to build dependency graph", err)
	}

	fetcher := fetch.New(fetch.DefaultCacheDir(rootOpts.RootPath))
	for _, leaf := range g.Leaves() {
		if !leaf.Remote {
			continue
		}
		if _, err := fetcher.EnsureLocal(ctx, leaf.Path); err != nil {
			return nil, nil, WrapExitError(ExitCommandError, "failed to fetch remote input", err)
		}
	}

	policy := graph.MissingOnly
	if redoIfModified {
		policy = graph.RedoIfModified
	}
	if err := graph.EvaluateStaleness(g, policy); err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to evaluate staleness", err)
	}
	return g, spec, nil
}

// printReport renders the final per-instance outcome with colored states.
func printReport(w io.Writer, report *engine.Report) {
	for _, res := range report.Results {
		var state string
		switch res.State {
		case engine.Succeeded:
			state = color.GreenString("%-14s", res.State)
		case engine.Failed:
			state = color.RedString("%-14s", res.State)
		case engine.SkippedFresh:
			state = color.CyanString("%-14s", res.State)
		case engine.SkippedFailed:
			state = color.YellowString("%-14s", res.State)
		default:
			state = fmt.Sprintf("%-14s", res.State)
		}
		fmt.Fprintf(w, "%s %s\n", state, res.Instance.Name)
		if res.State == engine.Failed {
			if res.LaunchErr != nil {
				fmt.Fprintf(w, "               could not launch: %v\n", res.LaunchErr)
			} else {
				fmt.Fprintf(w, "               exit code %d: %s\n", res.ExitCode, res.Instance.Command)
			}
		}
	}
}
