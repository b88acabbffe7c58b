package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(cmdVersion)
}

var cmdVersion = &cobra.Command{
	Use:   "version",
	Short: "Print the pifanctl version",
	Args:  cobra.ExactArgs(0),
	// no agent connection needed
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "pifanctl %s (commit %s, built %s)\n", valueOr(Version, "dev"), valueOr(Commit, "none"), valueOr(Date, "unknown"))
		return err
	},
}

func valueOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
