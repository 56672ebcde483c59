package quest

import (
	"context"
	"sync"
)

// Backend persists one quest snapshot per owner.
type Backend interface {
	// Load returns the stored snapshot for owner.
	// It MUST return (nil, nil) if no snapshot exists.
	Load(ctx context.Context, owner string) ([]Quest, error)

	// Save replaces the snapshot for owner.
	Save(ctx context.Context, owner string, quests []Quest) error
}

// MemoryBackend keeps snapshots in process memory.
type MemoryBackend struct {
	mu     sync.RWMutex
	ledger map[string][]Quest
	saves  int
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{ledger: make(map[string][]Quest)}
}

func (b *MemoryBackend) Load(_ context.Context, owner string) ([]Quest, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	stored, ok := b.ledger[owner]
	if !ok {
		return nil, nil
	}
	out := make([]Quest, len(stored))
	copy(out, stored)
	return out, nil
}

func (b *MemoryBackend) Save(_ context.Context, owner string, quests []Quest) error {
	cp := make([]Quest, len(quests))
	copy(cp, quests)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.ledger[owner] = cp
	b.saves++
	return nil
}

// Saves reports how many times Save has been called.
func (b *MemoryBackend) Saves() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.saves
}

// Unavailable is the backend used when no persistence exists, e.g. during
// headless rendering. Every call reports ErrUnavailable.
type Unavailable struct{}

func (Unavailable) Load(context.Context, string) ([]Quest, error) { return nil, ErrUnavailable }
func (Unavailable) Save(context.Context, string, []Quest) error   { return ErrUnavailable }

var (
	_ Backend = (*MemoryBackend)(nil)
	_ Backend = Unavailable{}
)
