// Package storage provides the persistence backends for the quest ledger:
// in-memory, JSON files, SQLite and Postgres.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/muhammadolammi/ascend/internal/database"
	"github.com/muhammadolammi/ascend/internal/quest"
)

type Mode string

const (
	ModeMemory   Mode = "memory"
	ModeFile     Mode = "file"
	ModeSQLite   Mode = "sqlite"
	ModePostgres Mode = "postgres"
)

func (m Mode) Valid() bool {
	switch m {
	case ModeMemory, ModeFile, ModeSQLite, ModePostgres:
		return true
	default:
		return false
	}
}

var ErrInvalidOptions = errors.New("storage: invalid options")

type Options struct {
	Mode       Mode
	Dir        string // ModeFile
	SQLitePath string // ModeSQLite
	DBURL      string // ModePostgres
}

// Opened is the result of Open. Queries is only set in ModePostgres.
type Opened struct {
	Backend quest.Backend
	Queries *database.Queries

	close func() error
}

func (o *Opened) Close() error {
	if o.close == nil {
		return nil
	}
	return o.close()
}

// Open builds the backend selected by opts.Mode.
func Open(ctx context.Context, opts Options) (*Opened, error) {
	switch opts.Mode {
	case ModeMemory:
		return &Opened{Backend: quest.NewMemoryBackend()}, nil
	case ModeFile:
		b, err := NewFileBackend(opts.Dir)
		if err != nil {
			return nil, err
		}
		return &Opened{Backend: b}, nil
	case ModeSQLite:
		b, err := OpenSQLite(ctx, opts.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &Opened{Backend: b, close: b.Close}, nil
	case ModePostgres:
		db, err := OpenPostgres(ctx, opts.DBURL)
		if err != nil {
			return nil, err
		}
		q := database.New(db)
		return &Opened{Backend: NewPostgresBackend(q), Queries: q, close: db.Close}, nil
	default:
		return nil, fmt.Errorf("%w: unknown mode %q", ErrInvalidOptions, opts.Mode)
	}
}
