package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muhammadolammi/ascend/internal/quest"
)

func newBackends(t *testing.T) map[string]quest.Backend {
	t.Helper()
	ctx := context.Background()

	file, err := NewFileBackend(filepath.Join(t.TempDir(), "quests"))
	require.NoError(t, err)

	lite, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = lite.Close() })

	return map[string]quest.Backend{
		"file":   file,
		"sqlite": lite,
	}
}

func TestBackendRoundTrip(t *testing.T) {
	for name, backend := range newBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			got, err := backend.Load(ctx, "alice")
			require.NoError(t, err)
			assert.Nil(t, got, "missing snapshot loads as nil")

			quests := quest.Defaults()
			quests[1].Completed = true
			require.NoError(t, backend.Save(ctx, "alice", quests))

			got, err = backend.Load(ctx, "alice")
			require.NoError(t, err)
			assert.Equal(t, quests, got)

			quests[2].Completed = true
			require.NoError(t, backend.Save(ctx, "alice", quests))
			got, err = backend.Load(ctx, "alice")
			require.NoError(t, err)
			assert.Equal(t, quests, got, "second save overwrites")

			other, err := backend.Load(ctx, "bob")
			require.NoError(t, err)
			assert.Nil(t, other, "owners are isolated")
		})
	}
}

func TestStoreOverBackends(t *testing.T) {
	for name, backend := range newBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := quest.NewStore(backend, nil, "carol")

			_, err := s.Complete(ctx, quest.IDRoadmap)
			require.NoError(t, err)

			reopened := quest.NewStore(backend, nil, "carol")
			xp, err := reopened.TotalXP(ctx)
			require.NoError(t, err)
			assert.Equal(t, 800, xp)

			require.NoError(t, reopened.Reset(ctx))
			quests, err := s.Quests(ctx)
			require.NoError(t, err)
			assert.Equal(t, quest.Defaults(), quests)
		})
	}
}

func TestFileBackendCorruptSnapshot(t *testing.T) {
	dir := t.TempDir()
	b, err := NewFileBackend(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dave"+ledgerSuffix), []byte("{not json"), 0o644))

	_, err = b.Load(context.Background(), "dave")
	require.ErrorIs(t, err, quest.ErrCorruptSnapshot)

	quests, err := quest.NewStore(b, nil, "dave").Quests(context.Background())
	require.NoError(t, err)
	assert.Equal(t, quest.Defaults(), quests)
}

func TestFileBackendEncodesOwner(t *testing.T) {
	dir := t.TempDir()
	b, err := NewFileBackend(dir)
	require.NoError(t, err)

	require.NoError(t, b.Save(context.Background(), "../../etc/passwd", quest.Defaults()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Li4vLi4vZXRjL3Bhc3N3ZA"+ledgerSuffix, entries[0].Name())
	assert.Equal(t, "_"+ledgerSuffix, filepath.Base(b.path("")))
}

func TestFileBackendKeepsSimilarOwnersApart(t *testing.T) {
	ctx := context.Background()
	b, err := NewFileBackend(t.TempDir())
	require.NoError(t, err)

	pairs := [][2]string{
		{"alice smith", "alice_smith"},
		{".", "_"},
		{"", "_"},
		{"bob/x", "bob_x"},
	}
	for _, p := range pairs {
		_, err := quest.NewStore(b, nil, p[0]).Complete(ctx, quest.IDJob)
		require.NoError(t, err)

		xp, err := quest.NewStore(b, nil, p[1]).TotalXP(ctx)
		require.NoError(t, err)
		assert.Zero(t, xp, "%q leaked into %q", p[0], p[1])

		xp, err = quest.NewStore(b, nil, p[0]).TotalXP(ctx)
		require.NoError(t, err)
		assert.Equal(t, 300, xp)
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	o, err := Open(ctx, Options{Mode: ModeMemory})
	require.NoError(t, err)
	assert.NotNil(t, o.Backend)
	assert.NoError(t, o.Close())

	o, err = Open(ctx, Options{Mode: ModeSQLite, SQLitePath: filepath.Join(t.TempDir(), "q.db")})
	require.NoError(t, err)
	assert.Nil(t, o.Queries)
	assert.NoError(t, o.Close())

	_, err = Open(ctx, Options{Mode: "redis"})
	require.ErrorIs(t, err, ErrInvalidOptions)

	_, err = Open(ctx, Options{Mode: ModePostgres})
	require.ErrorIs(t, err, ErrInvalidOptions)

	assert.True(t, ModeFile.Valid())
	assert.False(t, Mode("").Valid())
}
