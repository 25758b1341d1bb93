package main

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for the itnt CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "itnt",
		Short: "iTNT - primed explosive lifecycle manager",
		Long: `iTNT manages custom primed explosives for a block-world server:
fuse countdowns, labels, detonation and the lifecycle journal.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(newSandboxCmd())
	cmd.AddCommand(newHistoryCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the extension version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("itnt %s (built: %s)\n", version, date)
		},
	}
}
