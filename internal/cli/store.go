package cli

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"trivia-service/internal/app"
	"trivia-service/internal/config"
	"trivia-service/internal/infra/memory"
	"trivia-service/internal/infra/postgres"
	"trivia-service/internal/infra/sqlite"
	"trivia-service/internal/logging"
)

type questionStore interface {
	app.Store
	app.QuestionImporter
}

// openStore builds the configured store. The returned func releases it.
func openStore(ctx context.Context, cfg config.Config) (questionStore, func(), error) {
	logger := logging.FromContext(ctx)
	switch cfg.Store.Driver {
	case config.DriverSQLite:
		s, err := sqlite.Open(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, nil, err
		}
		logger.Infow("using sqlite store", "path", cfg.SQLite.Path)
		return s, func() { _ = s.Close() }, nil
	case config.DriverPostgres:
		if err := runMigrations(ctx, cfg); err != nil {
			return nil, nil, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		logger.Infow("using postgres store")
		return postgres.NewStore(pool), pool.Close, nil
	case config.DriverMemory, "":
		logger.Infow("using in-memory store; scores are lost on restart")
		return memory.NewStore(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
