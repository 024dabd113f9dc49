package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/remindctl/remind/adapter"
	"github.com/remindctl/remind/engine"
	"github.com/remindctl/remind/logger"
	"github.com/remindctl/remind/model"
)

// newRunCmd creates the 'run' subcommand: it drives one recipe
// through a single cycle and exits, without waiting out the timer
// the cycle ends on. Useful for testing a recipe in isolation before
// handing it to 'serve'. When no path is given, it resolves one
// itself via REMIND_CONFIG_PATH or the default fallback locations,
// the same discovery contract the engine's first LoadConfig effect
// always asks for.
func newRunCmd() *cobra.Command {
	var imapHost string
	cmd := &cobra.Command{
		Use:   "run [recipe.yaml]",
		Short: "Run a single reminder recipe through one cycle",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			}
			return runOnce(cmd.Context(), path, imapHost)
		},
	}
	cmd.Flags().StringVar(&imapHost, "imap-host", "imap.gmail.com:993", "IMAP server address for email steps")
	return cmd
}

func runOnce(ctx context.Context, path, imapHost string) error {
	var configPerformer adapter.Performer
	if path != "" {
		configPerformer = adapter.FixedConfigPerformer{Path: path}
	} else {
		configPerformer = adapter.ConfigPerformer{}
	}
	registry := adapter.NewRegistry(
		configPerformer,
		adapter.EnvPerformer{},
		adapter.SheetsPerformer{},
		adapter.EmailPerformer{Host: imapHost},
		adapter.NewTelegramPerformer(),
		adapter.TimerPerformer{},
	)

	f := engine.New()
	cmd := f.Start()
	for {
		switch c := cmd.(type) {
		case model.Do:
			if _, ok := c.Effect.(model.StartTimer); ok {
				logger.User("cycle completed successfully")
				return nil
			}
			event, err := registry.Perform(ctx, c.Effect)
			if err != nil {
				return err
			}
			cmd = f.OnEvent(event)
		case model.Wait:
			logger.User("cycle is waiting on an effect that never completed")
			return nil
		case model.Done:
			if c.Err != nil {
				logger.Error("cycle failed: %v", c.Err)
				os.Exit(1)
			}
			return nil
		default:
			return fmt.Errorf("unexpected command %T", cmd)
		}
	}
}
