package main

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/parranda-auth/internal/adapters/driven/postgres"
)

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down]",
		Short:     "Run database migrations",
		Long:      `Apply (up, the default) or roll back (down) the embedded PostgreSQL migrations.`,
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{postgres.MigrateUp, postgres.MigrateDown},
		RunE:      runMigrate,
	}
}

func runMigrate(cmd *cobra.Command, args []string) error {
	direction := postgres.MigrateUp
	if len(args) == 1 {
		direction = args[0]
	}

	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger.Info("running migrations", "direction", direction)
	if err := postgres.RunMigrations(cfg.DatabaseURL, direction); err != nil {
		return err
	}

	cmd.Println("Migrations completed successfully")
	return nil
}
