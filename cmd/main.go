package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alpacahq/framestore/cmd/inspect"
	"github.com/alpacahq/framestore/cmd/merge"
	"github.com/alpacahq/framestore/cmd/pad"
)

// Version is set at build time with -ldflags.
var Version = "dev"

// flagPrintVersion set flag to show current framestore version.
var flagPrintVersion bool

// NewRoot builds the command tree.
func NewRoot() *cobra.Command {
	// c is the root command.
	c := &cobra.Command{
		Use:   "framestore",
		Short: "Move column data between frame partitions",
		RunE: func(cmd *cobra.Command, args []string) error {
			if flagPrintVersion {
				fmt.Fprintf(cmd.OutOrStdout(), "framestore version %s\n", Version)
				return nil
			}
			// Print information regarding usage.
			return cmd.Usage()
		},
	}

	c.AddCommand(merge.Cmd)
	c.AddCommand(pad.Cmd)
	c.AddCommand(inspect.Cmd)
	c.Flags().BoolVarP(&flagPrintVersion, "version", "v", false, "show the version info and exit")
	return c
}

// Execute builds the command tree and executes commands.
func Execute() error {
	return NewRoot().Execute()
}
