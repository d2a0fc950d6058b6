package main

import (
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "piperack [command]",
	Short: "piperack: a local multi-process supervisor for developers",
	Long:  "piperack runs a dependency-ordered group of processes from a TOML config, watches their readiness, restarts them on failure or file changes, and gives you a single terminal view across all of their output.",
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
