package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/remindctl/remind/config"
	"github.com/remindctl/remind/logger"
	"github.com/remindctl/remind/recipe"
)

// newValidateCmd creates the 'validate' subcommand: it checks the
// daemon config and every recipe it references, without running
// anything.
func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the daemon config and every recipe it references",
		RunE: func(cmd *cobra.Command, args []string) error {
			return validate(configPath)
		},
	}
}

func validate(path string) error {
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("daemon config: %w", err)
	}

	failed := false
	for _, recipePath := range cfg.Workflows {
		data, err := os.ReadFile(recipePath)
		if err != nil {
			logger.Error("%s: %v", recipePath, err)
			failed = true
			continue
		}
		if _, err := recipe.Parse(string(data)); err != nil {
			logger.Error("%s: %v", recipePath, err)
			failed = true
			continue
		}
		logger.User("%s: ok", recipePath)
	}
	if failed {
		return fmt.Errorf("one or more recipes failed to validate")
	}
	return nil
}
