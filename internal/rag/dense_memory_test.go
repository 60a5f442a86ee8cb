package rag

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func denseFixture(t *testing.T) *MemoryDenseIndex {
	t.Helper()
	idx := NewMemoryDenseIndex("all-minilm")
	chunks := []Chunk{
		{Source: "a.pdf", ChunkIndex: 0, Content: "alpha"},
		{Source: "a.pdf", ChunkIndex: 1, Content: "beta"},
		{Source: "b.pdf", ChunkIndex: 0, Content: "gamma"},
	}
	vectors := [][]float32{
		{1, 0, 0},
		{0.9, 0.1, 0},
		{0, 0, 1},
	}
	require.NoError(t, idx.Add(context.Background(), chunks, vectors))
	return idx
}

func TestDenseSearchNearest(t *testing.T) {
	idx := denseFixture(t)

	results, err := idx.Search(context.Background(), []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "alpha", results[0].Chunk.Content)
	assert.Equal(t, "beta", results[1].Chunk.Content)
	// Score是距离，升序
	assert.LessOrEqual(t, results[0].Score, results[1].Score)
	assert.InDelta(t, 0.0, results[0].Score, 1e-9)
}

func TestDenseSearchKLargerThanIndex(t *testing.T) {
	idx := denseFixture(t)

	results, err := idx.Search(context.Background(), []float32{0, 0, 1}, 10)
	require.NoError(t, err)
	assert.Len(t, results, 3)
	assert.Equal(t, "gamma", results[0].Chunk.Content)
}

func TestDenseAddLengthMismatch(t *testing.T) {
	idx := NewMemoryDenseIndex("all-minilm")
	err := idx.Add(context.Background(), []Chunk{{Source: "x"}}, nil)
	assert.Error(t, err)
}

func TestDenseSnapshotRoundTrip(t *testing.T) {
	idx := denseFixture(t)
	dir := t.TempDir()
	require.NoError(t, idx.Save(dir))

	reloaded := NewMemoryDenseIndex("all-minilm")
	require.NoError(t, reloaded.Load(dir))
	assert.Equal(t, idx.Len(), reloaded.Len())

	// 重载后的检索结果与原索引一致
	query := []float32{0.8, 0.2, 0}
	want, err := idx.Search(context.Background(), query, 3)
	require.NoError(t, err)
	got, err := reloaded.Search(context.Background(), query, 3)
	require.NoError(t, err)

	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].Chunk.Key(), got[i].Chunk.Key())
		assert.InDelta(t, want[i].Score, got[i].Score, 1e-9)
	}
}

func TestDenseSnapshotModelMismatch(t *testing.T) {
	idx := denseFixture(t)
	dir := t.TempDir()
	require.NoError(t, idx.Save(dir))

	other := NewMemoryDenseIndex("nomic-embed-text")
	assert.Error(t, other.Load(dir))
}

func TestDenseLoadMissingSnapshot(t *testing.T) {
	idx := NewMemoryDenseIndex("all-minilm")
	assert.Error(t, idx.Load(t.TempDir()))
}
