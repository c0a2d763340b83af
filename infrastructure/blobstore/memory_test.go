package blobstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryStore_PutGetExistsDelete(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()
	key := DocumentKey("doc-1", "pdf")

	require.NoError(t, store.Put(ctx, key, []byte("%PDF-1.4"), "application/pdf"))

	exists, err := store.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, exists)

	data, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4"), data)

	require.NoError(t, store.Delete(ctx, key))
	exists, err = store.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestInMemoryStore_GetMissingKeyErrors(t *testing.T) {
	store := NewInMemoryStore()
	_, err := store.Get(context.Background(), "documents/missing.pdf")
	assert.Error(t, err)
}
