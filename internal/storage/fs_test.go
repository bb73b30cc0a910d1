package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *FSStore {
	t.Helper()
	store, err := NewFSStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestFSStoreRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.Upload(ctx, "sales.csv", []byte("date,store_id\n2025-01-01,DXB01\n"))
	require.NoError(t, err)

	exists, err := store.Exists(ctx, "sales.csv")
	require.NoError(t, err)
	assert.True(t, exists)

	data, err := store.Download(ctx, "sales.csv")
	require.NoError(t, err)
	assert.Equal(t, "date,store_id\n2025-01-01,DXB01\n", string(data))
}

func TestFSStoreOverwrite(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upload(ctx, "a.txt", []byte("v1")))
	require.NoError(t, store.Upload(ctx, "a.txt", []byte("v2")))

	data, err := store.Download(ctx, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))
}

func TestFSStoreSubfolders(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upload(ctx, "artifacts/afs-1.json", []byte("{}")))
	require.NoError(t, store.Upload(ctx, "artifacts/afs-2.json", []byte("{}")))
	require.NoError(t, store.Upload(ctx, "sales.csv", []byte("x")))

	files, err := store.List(ctx, "artifacts/")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "artifacts/afs-1.json", files[0].Name)
	assert.Equal(t, "artifacts/afs-2.json", files[1].Name)
}

func TestFSStoreMissingObject(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	exists, err := store.Exists(ctx, "nope.csv")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = store.Download(ctx, "nope.csv")
	assert.ErrorContains(t, err, "not found")
}

func TestFSStoreDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upload(ctx, "a.txt", []byte("x")))
	require.NoError(t, store.Delete(ctx, "a.txt"))

	exists, err := store.Exists(ctx, "a.txt")
	require.NoError(t, err)
	assert.False(t, exists)

	// Deleting again is a no-op.
	require.NoError(t, store.Delete(ctx, "a.txt"))
}

func TestFSStoreRejectsEscapingNames(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.Upload(ctx, "../escape.txt", []byte("x"))
	assert.Error(t, err)

	_, err = store.Download(ctx, "/etc/passwd")
	assert.Error(t, err)
}
