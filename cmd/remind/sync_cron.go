package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/remindctl/remind/config"
	"github.com/remindctl/remind/cron"
	"github.com/remindctl/remind/logger"
	"github.com/remindctl/remind/recipe"
)

// newSyncCronCmd creates the 'sync-cron' subcommand: it writes one
// managed crontab entry per configured workflow without starting the
// daemon. Each entry POSTs to the /internal/timer endpoint at
// base-url, which only a 'serve' process running in "system" cron
// mode answers.
func newSyncCronCmd() *cobra.Command {
	var baseURL string
	cmd := &cobra.Command{
		Use:   "sync-cron",
		Short: "Sync the system crontab with the configured workflows' schedules",
		RunE: func(cmd *cobra.Command, args []string) error {
			return syncCron(configPath, baseURL)
		},
	}
	cmd.Flags().StringVar(&baseURL, "base-url", "http://127.0.0.1:8089", "base URL this daemon is reachable at")
	return cmd
}

func syncCron(configFile, baseURL string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	var entries []cron.Entry
	for _, path := range cfg.Workflows {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		parsed, err := recipe.Parse(string(data))
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		entries = append(entries, cron.Entry{Name: workflowNameFromPath(path), Interval: parsed.RunEvery})
	}

	mgr := cron.NewManager(baseURL)
	if err := mgr.Sync(entries); err != nil {
		return err
	}
	logger.User("synced %d crontab entries", len(entries))
	return nil
}

func workflowNameFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
