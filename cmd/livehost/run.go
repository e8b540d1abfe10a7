package main

import (
	"context"

	"github.com/aretw0/livehost/internal/cli"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <script.lua>",
	Short: "Build and play a Lua module",
	Long: `Builds the script, loads it and plays it, printing its messages and state changes.
With --watch the script is rebuilt on every save: clean builds are hot-swapped in,
builds with fatal diagnostics are reported and the running module is kept.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		watch, _ := cmd.Flags().GetBool("watch")
		quiet, _ := cmd.Flags().GetBool("quiet")

		ctx := cli.NewSignalContext(context.Background())
		defer ctx.Cancel()

		return cli.Run(ctx, cli.RunOptions{
			Path:   args[0],
			Watch:  watch,
			Quiet:  quiet,
			Debug:  debugFlag(cmd),
			Config: cfg,
			Stdout: cmd.OutOrStdout(),
			Stderr: cmd.ErrOrStderr(),
		})
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolP("watch", "w", false, "Rebuild and hot-swap on file changes")
	runCmd.Flags().BoolP("quiet", "q", false, "Only print module messages")
}
