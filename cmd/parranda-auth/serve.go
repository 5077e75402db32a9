package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
)

// NewAPICmd creates the api subcommand.
func NewAPICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "api",
		Short: "Serve the HTTP API",
		Long:  `Serve the auth endpoints over HTTP. Expired sessions are not swept in this mode.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, true, false)
		},
	}
}

// NewWorkerCmd creates the worker subcommand.
func NewWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the expired session sweeper",
		Long: `Run the background sweeper that deletes expired sessions.
With several workers, the distributed lock lets one sweep per cycle.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, false, true)
		},
	}
}

// NewAllCmd creates the all subcommand.
func NewAllCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "all",
		Short: "Serve the HTTP API and run the sweeper in one process",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, true, true)
		},
	}
}

func run(cmd *cobra.Command, serveAPI, sweep bool) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	logger.Info("parranda-auth starting", "version", version, "api", serveAPI, "sweeper", sweep && cfg.SessionSweepEnabled)

	if sweep {
		if !cfg.SessionSweepEnabled {
			logger.Info("session sweeper disabled via SESSION_SWEEP_ENABLED=false")
		} else {
			if err := a.sweeper.Start(ctx); err != nil {
				return err
			}
			defer a.sweeper.Stop()
		}
	}

	if serveAPI {
		err := a.server().Start(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	}

	<-ctx.Done()
	logger.Info("shutdown signal received")
	return nil
}
