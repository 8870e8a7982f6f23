package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/smartmake/internal/graph"
)

// PlanOptions holds flags for the plan command.
type PlanOptions struct {
	*RootOptions
	Sets           []string
	RedoIfModified bool
}

// NewPlanCommand creates the plan command: a dry run that renders the
// execution plan without launching anything.
func NewPlanCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlanOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "plan <target>",
		Short:         "Show what a run would execute, without executing",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			g, _, err := prepareGraph(ctx, opts.RootOptions, args[0], opts.Sets, opts.RedoIfModified)
			if err != nil {
				return err
			}
			renderPlan(cmd.OutOrStdout(), g)
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&opts.Sets, "set", nil,
		"bind a parameter, name=value (repeatable)")
	cmd.Flags().BoolVar(&opts.RedoIfModified, "redo-if-modified", false,
		"rebuild outputs older than their dependencies, not just missing ones")

	return cmd
}

// renderPlan writes the plan in schedule order. Output is plain and
// deterministic; the golden tests depend on that.
func renderPlan(w io.Writer, g *graph.Graph) {
	for _, in := range g.Instances() {
		status := "fresh"
		if in.Stale {
			status = "run  "
		}
		fmt.Fprintf(w, "%s %s\n", status, in.Name)
		fmt.Fprintf(w, "      $ %s\n", in.Command)
		if needs := in.Task.ResourceNeeds(); len(needs) > 0 {
			names := make([]string, 0, len(needs))
			for name := range needs {
				names = append(names, name)
			}
			sort.Strings(names)
			pairs := make([]string, 0, len(names))
			for _, name := range names {
				pairs = append(pairs, fmt.Sprintf("%s=%d", name, needs[name]))
			}
			fmt.Fprintf(w, "      uses %s\n", strings.Join(pairs, " "))
		}
		for _, out := range in.Outputs {
			fmt.Fprintf(w, "      -> %s\n", out)
		}
	}
	for _, leaf := range g.Leaves() {
		fmt.Fprintf(w, "leaf  %s (%s)\n", leaf.Path, leaf.Alias)
	}
}
