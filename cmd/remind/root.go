package main

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/remindctl/remind/config"
)

var configPath string

// NewRootCmd creates the root 'remind' command and attaches its subcommands.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "remind",
		Short: "Run and manage scheduled reminder workflows",
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigPath, "Path to daemon config JSON")
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()
	}

	rootCmd.AddCommand(
		newRunCmd(),
		newServeCmd(),
		newValidateCmd(),
		newSyncCronCmd(),
	)
	return rootCmd
}
