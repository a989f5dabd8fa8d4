package embedding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_RoundTrip(t *testing.T) {
	store, err := OpenStore(t.TempDir(), nil)
	require.NoError(t, err)
	defer store.Close()

	_, ok, err := store.Get("m", "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	want := []float32{0.5, -1.25, 3}
	require.NoError(t, store.Put("m", "text", want))
	got, ok, err := store.Get("m", "text")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)

	_, ok, _ = store.Get("other-model", "text")
	assert.False(t, ok, "entries are scoped by model")
}

func TestPersistentEmbedder_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := OpenStore(dir, nil)
	require.NoError(t, err)
	first := newCounting(8)
	want, err := NewPersistentEmbedder(first, store).Embed(ctx, "the sun")
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = OpenStore(dir, nil)
	require.NoError(t, err)
	defer store.Close()
	second := newCounting(8)
	got, err := NewPersistentEmbedder(second, store).Embed(ctx, "the sun")
	require.NoError(t, err)

	assert.Equal(t, want, got)
	assert.Equal(t, int32(0), second.calls.Load(), "stored embedding should be reused")
}

func TestStore_InMemory(t *testing.T) {
	store, err := OpenStore("", nil)
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.Put("m", "t", []float32{1}))
	_, ok, err := store.Get("m", "t")
	require.NoError(t, err)
	assert.True(t, ok)
}
