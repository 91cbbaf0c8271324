package migrations

import (
	"context"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

var Migrations = migrate.NewMigrations()

var createTrivia = []string{
	`CREATE TABLE IF NOT EXISTS question (
		id               BIGSERIAL PRIMARY KEY,
		category         TEXT    NOT NULL DEFAULT '',
		category_comment TEXT    NOT NULL DEFAULT '',
		prompt           TEXT    NOT NULL,
		answer           TEXT    NOT NULL CHECK (answer <> ''),
		value            INTEGER NOT NULL DEFAULT 0,
		non_text         BOOLEAN NOT NULL DEFAULT FALSE,
		show_number      INTEGER NOT NULL DEFAULT 0,
		show_year        INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS question_show_number_idx ON question (show_number)`,
	`CREATE TABLE IF NOT EXISTS player (
		id       BIGSERIAL PRIMARY KEY,
		uid      TEXT    NOT NULL,
		platform TEXT    NOT NULL,
		attempts INTEGER NOT NULL DEFAULT 0,
		correct  INTEGER NOT NULL DEFAULT 0,
		UNIQUE (uid, platform)
	)`,
	`CREATE TABLE IF NOT EXISTS question_round (
		id           BIGSERIAL PRIMARY KEY,
		question_id  BIGINT      NOT NULL REFERENCES question (id),
		winner_id    BIGINT      REFERENCES player (id),
		started_at   TIMESTAMPTZ NOT NULL,
		completed_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS question_round_completed_at_idx ON question_round (completed_at)`,
}

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
				for _, stmt := range createTrivia {
					if _, err := tx.ExecContext(ctx, stmt); err != nil {
						return err
					}
				}
				return nil
			})
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS question_round, player, question`)
			return err
		},
	)
}
