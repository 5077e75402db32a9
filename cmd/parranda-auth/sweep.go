package main

import (
	"github.com/spf13/cobra"
)

// NewSweepCmd creates the sweep subcommand.
func NewSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete expired sessions once and exit",
		Long: `Run a single sweep cycle, for use from cron or a Kubernetes CronJob.
The sweep is skipped when another instance holds the sweep lock.`,
		Args: cobra.NoArgs,
		RunE: runSweep,
	}
}

func runSweep(cmd *cobra.Command, _ []string) error {
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

	removed, err := a.sweeper.SweepOnce(ctx)
	if err != nil {
		return err
	}

	cmd.Printf("Removed %d expired sessions\n", removed)
	return nil
}
