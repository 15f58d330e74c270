package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/relicforge/relic-server-go/internal/config"
	"github.com/relicforge/relic-server-go/internal/effects"
	"github.com/relicforge/relic-server-go/internal/sheet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func sampleDocument() *Document {
	doc := NewDocument()
	doc.SavedAt = time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	doc.Characters["hero"] = sheet.Snapshot{
		ID:         "hero",
		Name:       "Hero",
		Attributes: map[string]string{"ac_bonus": "2", "_effects_ledger": `{"numeric":{"ac_bonus":{"boon.shield|Shield Boon":2}}}`},
	}
	doc.Effects.Instances["inst-1"] = effects.Instance{
		ID:       "inst-1",
		EffectID: "boon.shield",
		TargetID: "hero",
		Adapter:  "ledger",
		Patches: []effects.Patch{
			{Kind: effects.PatchAddNumeric, Field: "ac_bonus", Value: "2", Label: "Shield Boon", LedgerKey: "boon.shield|Shield Boon"},
		},
		Results:   []effects.PatchResult{{Index: 0, Kind: effects.PatchAddNumeric, Field: "ac_bonus", OK: true}},
		CreatedAt: time.Date(2026, 3, 4, 5, 0, 0, 0, time.UTC),
	}
	doc.Effects.Order = []string{"inst-1"}
	doc.Effects.Index["hero"] = []string{"inst-1"}
	return doc
}

// exerciseStore runs the contract every driver must satisfy.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Load(ctx)
	require.ErrorIs(t, err, ErrNotFound)

	doc := sampleDocument()
	require.NoError(t, s.Save(ctx, doc))

	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, DocumentVersion, loaded.Version)
	assert.True(t, doc.SavedAt.Equal(loaded.SavedAt))
	assert.Equal(t, doc.Effects.Order, loaded.Effects.Order)
	assert.Equal(t, doc.Effects.Index, loaded.Effects.Index)
	assert.Equal(t, doc.Effects.Instances["inst-1"].Patches, loaded.Effects.Instances["inst-1"].Patches)
	assert.Equal(t, sheet.Checksum(doc.Characters["hero"]), sheet.Checksum(loaded.Characters["hero"]))

	// overwrite
	delete(doc.Characters, "hero")
	doc.Effects = effects.NewState()
	require.NoError(t, s.Save(ctx, doc))
	loaded, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, loaded.Characters)
	assert.Empty(t, loaded.Effects.Instances)

	require.NoError(t, s.Close())
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStore_LoadReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Save(context.Background(), sampleDocument()))

	first, err := s.Load(context.Background())
	require.NoError(t, err)
	first.Characters["hero"].Attributes["ac_bonus"] = "99"

	second, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2", second.Characters["hero"].Attributes["ac_bonus"])
}

func TestFileStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	s, err := NewFileStore(dir, "campaign")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "campaign.json.gz"), s.Path())
	exerciseStore(t, s)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary files are cleaned up")
}

func TestFileStore_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir, "broken")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(s.Path(), []byte("not gzip"), 0o644))

	_, err = s.Load(context.Background())
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relic.db")
	s, err := NewSQLiteStore(context.Background(), path, "campaign")
	require.NoError(t, err)
	assert.Equal(t, path, s.Path())
	exerciseStore(t, s)
}

func TestSQLiteStore_KeysAreIndependent(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	a, err := NewSQLiteStore(ctx, dir, "a")
	require.NoError(t, err)
	defer a.Close()
	b, err := NewSQLiteStore(ctx, dir, "b")
	require.NoError(t, err)
	defer b.Close()
	assert.Equal(t, filepath.Join(dir, "relic.db"), a.Path())

	require.NoError(t, a.Save(ctx, sampleDocument()))
	_, err = b.Load(ctx)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("RELIC_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("RELIC_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	key := "test-" + time.Now().UTC().Format("20060102150405.000000000")
	s, err := NewPostgresStore(ctx, dsn, key)
	require.NoError(t, err)
	exerciseStore(t, s)
}

func TestDecode_Versions(t *testing.T) {
	doc, err := Decode([]byte(`{"characters":null}`))
	require.NoError(t, err)
	assert.Equal(t, DocumentVersion, doc.Version)
	assert.NotNil(t, doc.Characters)
	assert.NotNil(t, doc.Effects.Instances)

	_, err = Decode([]byte(`{"version":99}`))
	assert.ErrorIs(t, err, ErrUnsupportedVersion)

	_, err = Decode([]byte(`{`))
	assert.Error(t, err)

	_, err = Encode(nil)
	assert.Error(t, err)
}

func TestOpen_Drivers(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := Open(ctx, config.StoreConfig{Driver: config.DriverMemory, Key: "k"}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = Open(ctx, config.StoreConfig{Driver: config.DriverFile, Key: "k", Path: dir}, nil)
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	s, err = Open(ctx, config.StoreConfig{Driver: config.DriverSQLite, Key: "k", Path: filepath.Join(dir, "state.db")}, nil)
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())

	_, err = Open(ctx, config.StoreConfig{Driver: "redis"}, nil)
	assert.Error(t, err)
}

func TestCopy(t *testing.T) {
	ctx := context.Background()
	src := NewMemoryStore()
	dst, err := NewFileStore(t.TempDir(), "copy")
	require.NoError(t, err)

	_, err = Copy(ctx, src, dst)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, src.Save(ctx, sampleDocument()))
	doc, err := Copy(ctx, src, dst)
	require.NoError(t, err)
	assert.Len(t, doc.Characters, 1)

	loaded, err := dst.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, doc.Effects.Order, loaded.Effects.Order)
}
