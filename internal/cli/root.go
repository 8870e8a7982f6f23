// Package cli wires the smartmake commands: loading and validating spec
// documents, building dependency graphs, and driving the engine.
package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose  bool
	SpecFile string
	RootPath string
}

// NewRootCommand creates the root command for the smartmake CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "smartmake",
		Short: "Parameterized incremental build scheduler",
		Long: `smartmake rebuilds parameterized file targets from a declarative spec.

Targets, the commands that produce them, and their file paths are templated
by experiment parameters bound at invocation; tasks may additionally be
gated by finite resource pools (e.g. a pool of GPUs). smartmake resolves the
transitive set of tasks needed for a target, skips the ones whose outputs
are already fresh, and runs the rest concurrently under a parallelism limit.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logLevel := slog.LevelInfo
			if opts.Verbose {
				logLevel = slog.LevelDebug
			}
			handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: logLevel,
			})
			slog.SetDefault(slog.New(handler))
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVarP(&opts.SpecFile, "spec", "f", "smartmake.yaml",
		"spec document (.yaml or .cue)")
	cmd.PersistentFlags().StringVar(&opts.RootPath, "root", ".",
		"root path under which files are built")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewPlanCommand(opts))
	cmd.AddCommand(NewTargetsCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))

	return cmd
}
