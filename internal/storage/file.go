package storage

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/muhammadolammi/ascend/internal/quest"
)

const ledgerSuffix = ".quests.json"

// FileBackend keeps one JSON snapshot per owner in a directory.
type FileBackend struct {
	dir string
}

// NewFileBackend creates dir if needed.
func NewFileBackend(dir string) (*FileBackend, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: quest directory is empty", ErrInvalidOptions)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create quest dir: %w", err)
	}
	return &FileBackend{dir: dir}, nil
}

// path encodes owner with unpadded base64url so every owner gets its own
// file name. The empty owner maps to "_", which no encoding produces.
func (b *FileBackend) path(owner string) string {
	name := base64.RawURLEncoding.EncodeToString([]byte(owner))
	if name == "" {
		name = "_"
	}
	return filepath.Join(b.dir, name+ledgerSuffix)
}

func (b *FileBackend) Load(_ context.Context, owner string) ([]quest.Quest, error) {
	data, err := os.ReadFile(b.path(owner))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read quest file: %w", err)
	}
	return decodeSnapshot(data)
}

func (b *FileBackend) Save(_ context.Context, owner string, quests []quest.Quest) error {
	data, err := json.Marshal(quests)
	if err != nil {
		return fmt.Errorf("marshal quests: %w", err)
	}
	return atomicWriteFile(b.path(owner), data, 0o644)
}

// atomicWriteFile writes through a temp file in the same directory and
// renames it over filename.
func atomicWriteFile(filename string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(filename)
	tmp, err := os.CreateTemp(dir, ".tmp-quests-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	var success bool
	defer func() {
		if !success {
			if err := os.Remove(tmp.Name()); err != nil && !errors.Is(err, os.ErrNotExist) {
				slog.Warn("failed to remove temporary file", "path", tmp.Name(), "error", err)
			}
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file %q: %w", tmp.Name(), err)
	}
	if err := os.Chmod(tmp.Name(), perm); err != nil {
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), filename); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	success = true
	return nil
}

func decodeSnapshot(data []byte) ([]quest.Quest, error) {
	var quests []quest.Quest
	if err := json.Unmarshal(data, &quests); err != nil {
		return nil, fmt.Errorf("%w: %v", quest.ErrCorruptSnapshot, err)
	}
	if quests == nil {
		quests = []quest.Quest{}
	}
	return quests, nil
}

var _ quest.Backend = (*FileBackend)(nil)
