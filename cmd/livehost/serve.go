package main

import (
	"context"

	"github.com/aretw0/livehost/internal/cli"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP control server",
	Long: `Exposes one supervisor over HTTP. Modules come from a directory of Lua scripts
and a YAML or JSON file of external programs. Status is kept in Redis when
LIVEHOST_REDIS_ADDR is set, in --state-dir otherwise.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		modules, _ := cmd.Flags().GetString("modules")
		scripts, _ := cmd.Flags().GetString("scripts")
		stateDir, _ := cmd.Flags().GetString("state-dir")
		load, _ := cmd.Flags().GetString("load")
		play, _ := cmd.Flags().GetBool("play")
		if cmd.Flags().Changed("addr") {
			cfg.HTTPAddr, _ = cmd.Flags().GetString("addr")
		}
		if cmd.Flags().Changed("host-id") {
			cfg.HostID, _ = cmd.Flags().GetString("host-id")
		}

		ctx := cli.NewSignalContext(context.Background())
		defer ctx.Cancel()

		return cli.Serve(ctx, cli.ServeOptions{
			ModulesPath: modules,
			ScriptDir:   scripts,
			StateDir:    stateDir,
			Load:        load,
			Play:        play,
			Debug:       debugFlag(cmd),
			Config:      cfg,
			Stdout:      cmd.OutOrStdout(),
			Stderr:      cmd.ErrOrStderr(),
		})
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("modules", "modules.yaml", "Process module definitions (YAML or JSON)")
	serveCmd.Flags().String("scripts", "", "Directory of Lua modules")
	serveCmd.Flags().String("state-dir", "", "Directory for the file status store")
	serveCmd.Flags().StringP("addr", "a", "", "Listen address (default from LIVEHOST_HTTP_ADDR)")
	serveCmd.Flags().String("host-id", "", "Host ID used for status and locking")
	serveCmd.Flags().String("load", "", "Module to load at startup")
	serveCmd.Flags().Bool("play", false, "Play the --load module immediately")
}
