package main

import (
	"os"

	"github.com/saint0x/pullmate/pkg/log"
	"github.com/spf13/cobra"
)

// NewRootCmd constructs the pullmate command tree
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "pullmate",
		Short:         "Compare GitHub branches and draft pull requests",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().Bool("debug", os.Getenv("DEBUG") == "true", "enable debug logging")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newCheckCmd())
	cmd.AddCommand(newCompareCmd())
	cmd.AddCommand(newTemplatesCmd())

	return cmd
}

// loggerFor builds the logger for cmd, writing to its output
func loggerFor(cmd *cobra.Command) *log.Logger {
	debug, _ := cmd.Flags().GetBool("debug")
	return log.NewWithWriter(cmd.OutOrStdout(), debug)
}
