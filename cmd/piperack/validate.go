package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"piperack/internal/app"
)

var validateConfigPath string

func init() {
	rootCmd.AddCommand(cmdValidate)
	cmdValidate.Flags().StringVarP(&validateConfigPath, "config", "c", "piperack.toml", "Path to the TOML config file")
}

var cmdValidate = &cobra.Command{
	Use:   "validate",
	Short: "Parse and validate a config file without starting anything",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.Validate(validateConfigPath); err != nil {
			return fmt.Errorf("config is invalid: %w", err)
		}
		return nil
	},
}
