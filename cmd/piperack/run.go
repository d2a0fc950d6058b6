package main

import (
	"os"

	"github.com/spf13/cobra"

	"piperack/internal/app"
)

var (
	runConfigPath string
	runNoUI       bool
)

func init() {
	rootCmd.AddCommand(cmdRun)
	cmdRun.Flags().StringVarP(&runConfigPath, "config", "c", "piperack.toml", "Path to the TOML config file")
	cmdRun.Flags().BoolVar(&runNoUI, "no-ui", false, "Run without the interactive terminal UI, streaming output to stdout instead")
}

var cmdRun = &cobra.Command{
	Use:   "run",
	Short: "Start the configured processes and supervise them until exit",
	Long:  "Loads the config, starts every process in dependency order, watches readiness and restart policy, and either opens the full-screen UI or streams plain lines with --no-ui.",
	RunE: func(cmd *cobra.Command, args []string) error {
		code := app.Run(app.Options{ConfigPath: runConfigPath, NoUI: runNoUI})
		os.Exit(code)
		return nil
	},
}
