package rag

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/research-orbits/backend-go/internal/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hashEmbedder 确定性伪向量，让检索可预测
type hashEmbedder struct{ calls int }

func (h *hashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	h.calls++
	vec := make([]float32, 8)
	for i, r := range text {
		vec[i%8] += float32(r%31) / 31.0
	}
	return vec, nil
}

func (h *hashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, _ := h.Embed(ctx, text)
		out[i] = vec
	}
	return out, nil
}

func (h *hashEmbedder) Model() string { return "hash" }
func (h *hashEmbedder) Ready() bool   { return true }

func writeCorpus(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"quantum_paper.txt":   "Quantum error correction protects fragile qubits. Surface codes detect and correct bit flip errors through stabilizer measurements.",
		"migration_paper.txt": "Bird migration follows magnetic field lines. Seasonal timing depends on daylight length and temperature gradients.",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	return dir
}

func newTestEngine(t *testing.T, corpusDir, snapshotDir string, gen *stubGenerator) (*Engine, *hashEmbedder) {
	t.Helper()
	embedder := &hashEmbedder{}

	ingestor := NewIngestor(NewLocalSource(corpusDir), NewFileParserManager(), NewChunker(200, 40, nil))
	sparse := NewMemorySparseIndex()
	dense := NewMemoryDenseIndex("hash")

	_, err := BuildIndexes(context.Background(), ingestor, sparse, dense, embedder, snapshotDir)
	require.NoError(t, err)

	hyde := NewHydeExpander(gen, "llama3.2:1b", 0.3, 40, 0.9, 100)
	fuser := NewHybridFuser(sparse, dense, embedder, 0.3, 0.7, 10, 10)
	answerer := NewAnswerGenerator(gen, metadata.NewTable(nil), "llama3.2:3b", 0.1, 20)

	return NewEngine(hyde, fuser, nil, NewEmbeddingReranker(embedder), answerer, 7), embedder
}

func TestEngineAskEndToEnd(t *testing.T) {
	gen := &stubGenerator{response: `{"answer": "Surface codes correct qubit errors.", "source_ids": ["doc0"]}`}
	engine, _ := newTestEngine(t, writeCorpus(t), "", gen)

	result, err := engine.Ask(context.Background(), "how does quantum error correction work")
	require.NoError(t, err)

	assert.Equal(t, "Surface codes correct qubit errors.", result.Answer)
	require.Len(t, result.SourceTitles, 1)
}

func TestEngineAskEmptyCorpus(t *testing.T) {
	gen := &stubGenerator{response: "{}"}
	engine, _ := newTestEngine(t, t.TempDir(), "", gen)

	result, err := engine.Ask(context.Background(), "anything at all")
	require.NoError(t, err)
	assert.Empty(t, result.Answer)
}

func TestBuildIndexesLoadsSnapshotInsteadOfReembedding(t *testing.T) {
	corpus := writeCorpus(t)
	snapshot := t.TempDir()

	embedder := &hashEmbedder{}
	ingestor := NewIngestor(NewLocalSource(corpus), NewFileParserManager(), NewChunker(200, 40, nil))

	dense := NewMemoryDenseIndex("hash")
	_, err := BuildIndexes(context.Background(), ingestor, NewMemorySparseIndex(), dense, embedder, snapshot)
	require.NoError(t, err)
	require.Greater(t, dense.Len(), 0)
	firstCalls := embedder.calls
	require.Greater(t, firstCalls, 0)

	// 第二次启动：快照存在，必须加载而不是重新向量化
	dense2 := NewMemoryDenseIndex("hash")
	_, err = BuildIndexes(context.Background(), ingestor, NewMemorySparseIndex(), dense2, embedder, snapshot)
	require.NoError(t, err)

	assert.Equal(t, dense.Len(), dense2.Len())
	assert.Equal(t, firstCalls, embedder.calls, "snapshot load must not re-embed the corpus")
}
