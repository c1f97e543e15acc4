package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

const version = "0.2.0"

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the silentwatch version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("silentwatch", version)
		},
	}
}
