// Package commands implements CLI command handlers for plotcalc.
package commands

import (
	"github.com/spf13/cobra"
)

// Execute runs the root command.
func Execute() error {
	root := &cobra.Command{
		Use:           "plotcalc",
		Short:         "Per-checkpoint metric evaluation for staged additive models",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.AddCommand(newEvalCommand())

	return root.Execute()
}
