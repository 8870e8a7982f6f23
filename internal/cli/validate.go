package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewValidateCommand creates the validate command: schema plus model-level
// validation of a spec document, reporting every problem found.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "validate",
		Short:         "Validate the spec document without building anything",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := LoadSpec(rootOpts.SpecFile)
			if err != nil {
				return WrapExitError(ExitCommandError, "spec document is invalid", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(),
				"%s is valid: %d parameter(s), %d file(s), %d resource(s), %d task(s)\n",
				rootOpts.SpecFile,
				len(spec.Parameters), len(spec.Files), len(spec.Resources), len(spec.Tasks))
			return nil
		},
	}
	return cmd
}
