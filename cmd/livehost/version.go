package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/livehost"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of livehost",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "livehost version %s\n", strings.TrimSpace(livehost.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
