package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/muhammadolammi/ascend/internal/database"
	"github.com/muhammadolammi/ascend/internal/quest"
)

// PostgresBackend stores quest snapshots in the quest_ledgers table.
type PostgresBackend struct {
	queries *database.Queries
}

func NewPostgresBackend(queries *database.Queries) *PostgresBackend {
	return &PostgresBackend{queries: queries}
}

// OpenPostgres connects to dbURL and applies the schema.
func OpenPostgres(ctx context.Context, dbURL string) (*sql.DB, error) {
	if dbURL == "" {
		return nil, fmt.Errorf("%w: empty DB_URL", ErrInvalidOptions)
	}
	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := database.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func (b *PostgresBackend) Load(ctx context.Context, owner string) ([]quest.Quest, error) {
	row, err := b.queries.GetQuestLedger(ctx, owner)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("quest ledger get: %w", err)
	}
	return decodeSnapshot(row.Quests)
}

func (b *PostgresBackend) Save(ctx context.Context, owner string, quests []quest.Quest) error {
	data, err := json.Marshal(quests)
	if err != nil {
		return fmt.Errorf("marshal quests: %w", err)
	}
	if err := b.queries.UpsertQuestLedger(ctx, database.UpsertQuestLedgerParams{
		Owner:  owner,
		Quests: data,
	}); err != nil {
		return fmt.Errorf("quest ledger upsert: %w", err)
	}
	return nil
}

var _ quest.Backend = (*PostgresBackend)(nil)
