package rag

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubEmbedder 按关键词返回固定向量
type stubEmbedder struct {
	vectors map[string][]float32
	fallback []float32
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if vec, ok := s.vectors[text]; ok {
		return vec, nil
	}
	if s.fallback != nil {
		return s.fallback, nil
	}
	return nil, fmt.Errorf("no stub vector for %q", text)
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := s.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (s *stubEmbedder) Model() string { return "stub" }
func (s *stubEmbedder) Ready() bool   { return true }

func TestEmbeddingRerankerOrdersByCosine(t *testing.T) {
	embedder := &stubEmbedder{vectors: map[string][]float32{
		"what is quantum error correction": {1, 0, 0},
		"quantum error correction overview": {0.95, 0.05, 0},
		"bird migration":                    {0, 1, 0},
		"cooking recipes":                   {0, 0, 1},
	}}
	reranker := NewEmbeddingReranker(embedder)

	candidates := []Candidate{
		{Chunk: Chunk{Source: "c.pdf", ChunkIndex: 0, Content: "cooking recipes"}},
		{Chunk: Chunk{Source: "b.pdf", ChunkIndex: 0, Content: "bird migration"}},
		{Chunk: Chunk{Source: "a.pdf", ChunkIndex: 0, Content: "quantum error correction overview"}},
	}

	results, err := reranker.Rerank(context.Background(), "what is quantum error correction", candidates, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "a.pdf", results[0].Chunk.Source)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestEmbeddingRerankerEmptyCandidates(t *testing.T) {
	reranker := NewEmbeddingReranker(&stubEmbedder{})
	results, err := reranker.Rerank(context.Background(), "anything", nil, 7)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestEmbeddingRerankerIdempotentOnSortedInput(t *testing.T) {
	embedder := &stubEmbedder{vectors: map[string][]float32{
		"q":     {1, 0},
		"close": {0.9, 0.1},
		"mid":   {0.5, 0.5},
		"far":   {0, 1},
	}}
	reranker := NewEmbeddingReranker(embedder)

	candidates := []Candidate{
		{Chunk: Chunk{Source: "1", ChunkIndex: 0, Content: "close"}},
		{Chunk: Chunk{Source: "2", ChunkIndex: 0, Content: "mid"}},
		{Chunk: Chunk{Source: "3", ChunkIndex: 0, Content: "far"}},
	}

	first, err := reranker.Rerank(context.Background(), "q", candidates, 3)
	require.NoError(t, err)
	second, err := reranker.Rerank(context.Background(), "q", first, 3)
	require.NoError(t, err)

	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].Chunk.Key(), second[i].Chunk.Key())
	}
}

func TestEmbeddingRerankerTopKLargerThanInput(t *testing.T) {
	embedder := &stubEmbedder{fallback: []float32{1, 0}}
	reranker := NewEmbeddingReranker(embedder)

	candidates := []Candidate{
		{Chunk: Chunk{Source: "only", ChunkIndex: 0, Content: "text"}},
	}
	results, err := reranker.Rerank(context.Background(), "query", candidates, 7)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}
