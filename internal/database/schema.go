package database

import (
	"context"
	"database/sql"
	"fmt"
)

// Migrate creates the Postgres tables used by the quest and resume stores.
func Migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS quest_ledgers (
			owner TEXT PRIMARY KEY,
			quests JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS resumes (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			owner TEXT NOT NULL,
			original_filename TEXT NOT NULL,
			mime TEXT NOT NULL,
			size_bytes BIGINT NOT NULL,
			storage_provider TEXT NOT NULL,
			object_key TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE INDEX IF NOT EXISTS idx_resumes_owner ON resumes(owner);`,
		`CREATE TABLE IF NOT EXISTS resume_analyses (
			resume_id UUID PRIMARY KEY REFERENCES resumes(id) ON DELETE CASCADE,
			analysis JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
