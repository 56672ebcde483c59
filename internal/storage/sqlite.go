package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/muhammadolammi/ascend/internal/quest"
)

// SQLiteBackend stores quest snapshots in a local SQLite database.
type SQLiteBackend struct {
	db *sql.DB
}

// OpenSQLite opens (and creates if missing) the database at path and applies
// the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLiteBackend, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: sqlite path is empty", ErrInvalidOptions)
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection keeps :memory: databases shared and serializes writers.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if err := migrateSQLite(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteBackend{db: db}, nil
}

func migrateSQLite(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS quest_ledgers (
			owner TEXT PRIMARY KEY,
			quests TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (b *SQLiteBackend) Load(ctx context.Context, owner string) ([]quest.Quest, error) {
	var raw string
	err := b.db.QueryRowContext(ctx, `SELECT quests FROM quest_ledgers WHERE owner = ?`, owner).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("quest ledger get: %w", err)
	}
	return decodeSnapshot([]byte(raw))
}

func (b *SQLiteBackend) Save(ctx context.Context, owner string, quests []quest.Quest) error {
	data, err := json.Marshal(quests)
	if err != nil {
		return fmt.Errorf("marshal quests: %w", err)
	}
	_, err = b.db.ExecContext(ctx, `
		INSERT INTO quest_ledgers (owner, quests, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(owner) DO UPDATE SET
			quests = excluded.quests,
			updated_at = CURRENT_TIMESTAMP
	`, owner, string(data))
	if err != nil {
		return fmt.Errorf("quest ledger upsert: %w", err)
	}
	return nil
}

func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}

var _ quest.Backend = (*SQLiteBackend)(nil)
