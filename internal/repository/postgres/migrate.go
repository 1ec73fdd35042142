package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Migrate creates the schema for the given table prefix if it does not
// exist yet. Safe to run on every startup.
func Migrate(ctx context.Context, pool *pgxpool.Pool, tables *TableNames) error {
	statements := []string{
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id            UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				name          VARCHAR(255) NOT NULL,
				kind          VARCHAR(16) NOT NULL,
				language      VARCHAR(64) NOT NULL DEFAULT '',
				content       TEXT NOT NULL DEFAULT '',
				parent_id     UUID,
				owner_id      TEXT NOT NULL,
				starred       BOOLEAN NOT NULL DEFAULT FALSE,
				shared_with   JSONB NOT NULL DEFAULT '{}'::jsonb,
				last_modified TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				deleted_at    TIMESTAMPTZ
			)
		`, tables.Documents),
		fmt.Sprintf(`
			CREATE INDEX IF NOT EXISTS %s_owner_idx ON %s (owner_id) WHERE deleted_at IS NULL
		`, tables.Documents, tables.Documents),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id         UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				recipient  TEXT NOT NULL,
				file_id    TEXT NOT NULL,
				file_name  VARCHAR(255) NOT NULL,
				shared_by  TEXT NOT NULL,
				permission VARCHAR(16) NOT NULL,
				ts         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				read       BOOLEAN NOT NULL DEFAULT FALSE
			)
		`, tables.Notifications),
		fmt.Sprintf(`
			CREATE INDEX IF NOT EXISTS %s_recipient_idx ON %s (recipient)
		`, tables.Notifications, tables.Notifications),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				document_id TEXT NOT NULL,
				user_id     TEXT NOT NULL,
				name        TEXT NOT NULL DEFAULT '',
				email       TEXT NOT NULL DEFAULT '',
				photo_url   TEXT NOT NULL DEFAULT '',
				cursor      JSONB,
				last_seen   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				PRIMARY KEY (document_id, user_id)
			)
		`, tables.Presence),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id           TEXT PRIMARY KEY,
				email        TEXT NOT NULL,
				display_name TEXT NOT NULL DEFAULT '',
				photo_url    TEXT NOT NULL DEFAULT ''
			)
		`, tables.Users),
		fmt.Sprintf(`
			CREATE UNIQUE INDEX IF NOT EXISTS %s_email_idx ON %s (LOWER(email))
		`, tables.Users, tables.Users),
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate schema: %w", err)
		}
	}
	return nil
}
