package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is overridden at build time via -ldflags.
var version = "dev"

func init() {
	rootCmd.AddCommand(cmdVersion)
}

var cmdVersion = &cobra.Command{
	Use:   "version",
	Short: "Print the piperack version",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("piperack " + version)
		return nil
	},
}
