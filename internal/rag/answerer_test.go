package rag

import (
	"context"
	"testing"

	"github.com/research-orbits/backend-go/internal/llm"
	"github.com/research-orbits/backend-go/internal/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubGenerator 返回固定文本
type stubGenerator struct {
	response string
	err      error
}

func (s *stubGenerator) Generate(ctx context.Context, prompt string, opts llm.GenerateOptions) (string, error) {
	return s.response, s.err
}

func (s *stubGenerator) Ready() bool { return true }

func TestResolveCitations(t *testing.T) {
	idToTitle := map[string]string{"doc0": "A", "doc1": "B"}

	titles := ResolveCitations([]string{"doc0", "doc2"}, idToTitle)
	assert.Equal(t, []string{"A", "Unknown document (doc2)"}, titles)
}

func TestResolveCitationsTrimsWhitespace(t *testing.T) {
	idToTitle := map[string]string{"doc0": "A"}
	titles := ResolveCitations([]string{" doc0 "}, idToTitle)
	assert.Equal(t, []string{"A"}, titles)
}

func TestAssembleContextFormat(t *testing.T) {
	chunks := []Chunk{
		{Source: "paper_a.pdf", Title: "paper_a", Content: "first chunk"},
		{Source: "paper_b.pdf", Title: "paper_b", Content: "second chunk"},
	}

	assembled := AssembleContext(chunks)

	assert.Contains(t, assembled.Text, "[id: doc0 | title: paper_a]\nfirst chunk\n\n")
	assert.Contains(t, assembled.Text, "[id: doc1 | title: paper_b]\nsecond chunk\n\n")
	assert.Equal(t, map[string]string{"doc0": "paper_a", "doc1": "paper_b"}, assembled.IDToTitle)
}

func TestAssembleContextFallsBackToSource(t *testing.T) {
	assembled := AssembleContext([]Chunk{{Source: "raw.pdf", Content: "text"}})
	assert.Equal(t, "raw.pdf", assembled.IDToTitle["doc0"])
}

func TestAnswerParsesStructuredOutput(t *testing.T) {
	gen := &stubGenerator{response: `{"answer": "Plants grow slower.", "source_ids": ["doc0"]}`}
	table := metadata.NewTable([]metadata.Publication{
		{Title: "paper_a", Journal: "Astrobiology", Year: "2021"},
	})
	answerer := NewAnswerGenerator(gen, table, "llama3.2:3b", 0.1, 20)

	chunks := []Chunk{{Source: "paper_a.pdf", Title: "paper_a", Content: "growth data"}}
	result, err := answerer.Answer(context.Background(), "How do plants grow in space?", chunks)
	require.NoError(t, err)

	assert.Equal(t, "Plants grow slower.", result.Answer)
	assert.Equal(t, []string{"paper_a"}, result.SourceTitles)
	require.Len(t, result.Sources, 1)
	require.NotNil(t, result.Sources[0])
	assert.Equal(t, "Astrobiology", result.Sources[0].Journal)
}

func TestAnswerFallsBackOnMalformedJSON(t *testing.T) {
	gen := &stubGenerator{response: "Plants grow slower in microgravity."}
	answerer := NewAnswerGenerator(gen, metadata.NewTable(nil), "llama3.2:3b", 0.1, 20)

	result, err := answerer.Answer(context.Background(), "q", []Chunk{{Source: "a", Content: "c"}})
	require.NoError(t, err)

	assert.Equal(t, "Plants grow slower in microgravity.", result.Answer)
	assert.Empty(t, result.SourceTitles)
	assert.Empty(t, result.Sources)
}

func TestAnswerUnmatchedMetadataYieldsNilSource(t *testing.T) {
	gen := &stubGenerator{response: `{"answer": "x", "source_ids": ["doc0"]}`}
	answerer := NewAnswerGenerator(gen, metadata.NewTable(nil), "llama3.2:3b", 0.1, 20)

	result, err := answerer.Answer(context.Background(), "q", []Chunk{{Source: "a", Title: "a", Content: "c"}})
	require.NoError(t, err)

	require.Len(t, result.Sources, 1)
	assert.Nil(t, result.Sources[0])
}
