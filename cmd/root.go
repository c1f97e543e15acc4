// Package cmd wires the silentwatch CLI.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "silentwatch",
		Short: "Silent Protocol ceremony queue monitoring bot",
	}
	cmd.AddCommand(runCmd())
	cmd.AddCommand(versionCmd())
	return cmd
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
