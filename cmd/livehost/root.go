package main

import (
	"fmt"
	"os"

	"github.com/aretw0/livehost/internal/config"
	"github.com/spf13/cobra"
)

// cfg is read from LIVEHOST_* variables before any command runs; flags override it.
var cfg config.Config

var rootCmd = &cobra.Command{
	Use:           "livehost",
	Short:         "livehost runs user modules that can be swapped while they run",
	Long:          `livehost builds Lua scripts and external programs into modules, runs them under a supervisor and hot-swaps them when they change.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(); err != nil {
			return err
		}
		return applyFlags(cmd)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.Bool("debug", false, "Enable debug logging on stderr")
	flags.Duration("stop-timeout", 0, "How long Stop waits for a module (default from LIVEHOST_STOP_TIMEOUT)")
	flags.String("backpressure", "", "Channel policy: unbounded or bounded:N")
	flags.String("log-level", "", "Log level: debug, info, warn or error")
}

// applyFlags overrides environment settings with explicitly set flags.
func applyFlags(cmd *cobra.Command) error {
	flags := cmd.Flags()
	if flags.Changed("stop-timeout") {
		d, _ := flags.GetDuration("stop-timeout")
		if d < 0 {
			return fmt.Errorf("--stop-timeout must not be negative, got %s", d)
		}
		cfg.StopTimeout = d
	}
	if flags.Changed("backpressure") {
		cfg.Backpressure, _ = flags.GetString("backpressure")
		if _, err := cfg.Policy(); err != nil {
			return err
		}
	}
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
		if _, err := cfg.Level(); err != nil {
			return err
		}
	}
	return nil
}

func debugFlag(cmd *cobra.Command) bool {
	debug, _ := cmd.Flags().GetBool("debug")
	return debug
}
