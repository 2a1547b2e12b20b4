package sqlitestore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-csvdoc/pkg/state"
)

type documentRecord struct {
	Headers []string            `json:"headers"`
	Rows    []map[string]string `json:"rows"`
}

func TestStoreRoundTrip(t *testing.T) {
	db, err := Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	store, err := New[documentRecord](db)
	require.NoError(t, err)
	ctx := context.Background()
	ref := state.DocumentRef("default")

	_, _, ok, err := store.Load(ctx, ref)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = store.Save(ctx, ref, documentRecord{
		Headers: []string{"A", "B"},
		Rows:    []map[string]string{{"A": "x", "B": "y"}},
	}, state.Meta{SnapshotID: "first"})
	require.NoError(t, err)

	_, err = store.Save(ctx, ref, documentRecord{
		Headers: []string{"A", "B"},
		Rows:    []map[string]string{{"A": "x", "B": "z"}},
	}, state.Meta{SnapshotID: "second"})
	require.NoError(t, err)

	got, meta, ok, err := store.Load(ctx, ref)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "second", meta.SnapshotID)
	require.Len(t, got.Rows, 1)
	assert.Equal(t, "z", got.Rows[0]["B"])
}

func TestStoreOnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "csvdoc.db")
	db, err := Open(path, WithMkdirAll())
	require.NoError(t, err)

	store, err := New[documentRecord](db)
	require.NoError(t, err)
	ctx := context.Background()
	_, err = store.Save(ctx, state.SchemaRef("default"), documentRecord{Headers: []string{"Status"}}, state.Meta{})
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db2, err := Open(path)
	require.NoError(t, err)
	defer db2.Close()
	store2, err := New[documentRecord](db2)
	require.NoError(t, err)

	got, _, ok, err := store2.Load(ctx, state.SchemaRef("default"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"Status"}, got.Headers)

	require.NoError(t, store2.Delete(ctx, state.SchemaRef("default")))
	_, _, ok, err = store2.Load(ctx, state.SchemaRef("default"))
	require.NoError(t, err)
	assert.False(t, ok)
}
