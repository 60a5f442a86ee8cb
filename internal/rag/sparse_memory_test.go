package rag

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testChunks() []Chunk {
	return []Chunk{
		{Source: "a.pdf", Title: "a", ChunkIndex: 0, Content: "quantum error correction protects qubits from decoherence"},
		{Source: "a.pdf", Title: "a", ChunkIndex: 1, Content: "surface codes are a family of quantum error correction codes"},
		{Source: "b.pdf", Title: "b", ChunkIndex: 0, Content: "bird migration follows magnetic field lines across continents"},
		{Source: "b.pdf", Title: "b", ChunkIndex: 1, Content: "seasonal migration timing depends on daylight and temperature"},
	}
}

func TestSparseSearchRanking(t *testing.T) {
	idx := NewMemorySparseIndex()
	require.NoError(t, idx.Index(context.Background(), testChunks()))
	assert.True(t, idx.Ready())

	results, err := idx.Search(context.Background(), "quantum error correction", 4)
	require.NoError(t, err)
	require.NotEmpty(t, results)

	// 命中词的切片排在前面
	assert.Equal(t, "a.pdf", results[0].Chunk.Source)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
}

func TestSparseSearchNoMatch(t *testing.T) {
	idx := NewMemorySparseIndex()
	require.NoError(t, idx.Index(context.Background(), testChunks()))

	results, err := idx.Search(context.Background(), "zzz nonexistent term", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSparseSearchEmptyIndex(t *testing.T) {
	idx := NewMemorySparseIndex()
	assert.False(t, idx.Ready())

	results, err := idx.Search(context.Background(), "anything", 3)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSparseSearchRespectsK(t *testing.T) {
	idx := NewMemorySparseIndex()
	require.NoError(t, idx.Index(context.Background(), testChunks()))

	results, err := idx.Search(context.Background(), "migration", 1)
	require.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Equal(t, "b.pdf", results[0].Chunk.Source)
}

func TestSparseReindexReplaces(t *testing.T) {
	idx := NewMemorySparseIndex()
	require.NoError(t, idx.Index(context.Background(), testChunks()))
	require.NoError(t, idx.Index(context.Background(), []Chunk{
		{Source: "c.pdf", ChunkIndex: 0, Content: "entirely new corpus about volcanoes"},
	}))

	results, err := idx.Search(context.Background(), "quantum", 5)
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = idx.Search(context.Background(), "volcanoes", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "c.pdf", results[0].Chunk.Source)
}
