package main

import (
	"github.com/aretw0/livehost/internal/cli"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check <script.lua>...",
	Short: "Report diagnostics without running anything",
	Long:  `Builds each script and prints its diagnostics. Exits with status 1 when any of them would be rejected.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.Check(cmd.Context(), cli.CheckOptions{
			Paths:  args,
			Config: cfg,
			Stdout: cmd.OutOrStdout(),
		})
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
