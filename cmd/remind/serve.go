package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/remindctl/remind/config"
	"github.com/remindctl/remind/daemon"
	"github.com/remindctl/remind/httpapi"
	"github.com/remindctl/remind/logger"
	"github.com/remindctl/remind/telemetry"
)

// newServeCmd creates the 'serve' subcommand: it loads the daemon
// config, starts every configured workflow, and serves the status
// API until interrupted.
func newServeCmd() *cobra.Command {
	var baseURL, imapHost string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the reminder daemon: drive every configured workflow and serve its status API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), baseURL, imapHost)
		},
	}
	cmd.Flags().StringVar(&baseURL, "base-url", "http://127.0.0.1:8089", "base URL this daemon is reachable at, used for system cron callbacks")
	cmd.Flags().StringVar(&imapHost, "imap-host", "imap.gmail.com:993", "IMAP server address for email steps")
	return cmd
}

func serve(ctx context.Context, baseURL, imapHost string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := telemetry.Init(cfg.Tracing); err != nil {
		return err
	}

	d, err := daemon.New(ctx, cfg, baseURL, imapHost)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var resume httpapi.ResumeFunc
	if cfg.Cron != nil && cfg.Cron.Mode == "system" {
		resume = d.ResumeTimer
	}
	srv := httpapi.New(cfg.HTTP, d.History(), d.WorkflowNames(), resume)
	go func() {
		if err := srv.ListenAndServe(ctx); err != nil {
			logger.Error("status API exited: %v", err)
		}
	}()

	logger.Info("remind daemon started with %d workflow(s)", len(cfg.Workflows))
	return d.Run(ctx)
}
