package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "opsdeck-cli",
	Short: "Opsdeck CLI tool",
	Long: `Opsdeck CLI is a command-line companion for the Opsdeck dashboard.

Available commands:
  modules       List the feature modules registered with the application
  new-module    Scaffold a new feature module

Use "opsdeck-cli [command] --help" for more information about a specific command.`,
}

// Execute executes the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
