package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"trivia-service/internal/config"
	"trivia-service/internal/infra/postgres"
	"trivia-service/internal/logging"
)

// NewMigrateCmd applies database migrations.
func NewMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run Postgres schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			logger := logging.NewLogger(cfg.Debug)
			defer logger.Sync()
			return runMigrations(logging.WithLogger(cmd.Context(), logger), cfg)
		},
	}
}

func runMigrations(ctx context.Context, cfg config.Config) error {
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured")
	}
	group, err := postgres.Migrate(ctx, cfg.Postgres.URL)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	logger := logging.FromContext(ctx)
	if group.IsZero() {
		logger.Infow("no new migrations")
		return nil
	}
	logger.Infow("migrations applied", "group", group.String())
	return nil
}
