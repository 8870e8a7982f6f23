package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/roach88/smartmake/internal/model"
)

// NewTargetsCommand creates the targets command, listing every declared
// file alias with its producing task and, for unparameterized aliases, a
// colored freshness vital.
func NewTargetsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "targets",
		Short:         "List declared file aliases and their producing tasks",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := LoadSpec(rootOpts.SpecFile)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load spec", err)
			}

			files := append([]model.FileAlias(nil), spec.Files...)
			sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })

			w := cmd.OutOrStdout()
			for _, f := range files {
				producer := "(leaf)"
				if task, ok := spec.Producer(f.Name); ok {
					producer = task.Name
				}
				fmt.Fprintf(w, "%s [%s] %s <- %s\n",
					vitalFor(rootOpts.RootPath, f),
					color.HiWhiteString("%s", f.Name),
					color.BlueString("%s", f.PathTemplate),
					color.YellowString("%s", producer),
				)
			}
			return nil
		},
	}
	return cmd
}

// vitalFor renders the freshness marker for an alias. Aliases whose path
// template still has unbound parameters cannot be checked without a
// binding and show as parameterized.
func vitalFor(root string, f model.FileAlias) string {
	if len(model.TemplateParams(f.PathTemplate)) > 0 {
		return color.MagentaString("params ")
	}
	path := f.PathTemplate
	if !model.IsRemote(path) {
		path = filepath.Join(root, path)
	}
	if _, err := os.Stat(path); err == nil {
		return color.GreenString("current")
	}
	return color.RedString("stale  ")
}
