package rag

import (
	"context"
	"math"
	"sort"

	"github.com/research-orbits/backend-go/internal/llm"
)

// Reranker 用原始问题对融合候选重新打分并截断到top_k。
// 永远不用HyDE短文：重排必须反映用户的字面意图。
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []Candidate, topK int) ([]Candidate, error)
	Ready() bool
}

// EmbeddingReranker 交叉编码器不可用时的退化实现：
// 对查询和切片分别计算新向量，按余弦相似度排序。
type EmbeddingReranker struct {
	embedder llm.Embedder
}

// NewEmbeddingReranker 创建基于向量余弦的重排器
func NewEmbeddingReranker(embedder llm.Embedder) *EmbeddingReranker {
	return &EmbeddingReranker{embedder: embedder}
}

func (r *EmbeddingReranker) Rerank(ctx context.Context, query string, candidates []Candidate, topK int) ([]Candidate, error) {
	if len(candidates) == 0 || topK <= 0 {
		return nil, nil
	}

	queryVec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	texts := make([]string, len(candidates))
	for i, cand := range candidates {
		texts[i] = cand.Chunk.Content
	}
	chunkVecs, err := r.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}

	scored := make([]Candidate, len(candidates))
	for i, cand := range candidates {
		scored[i] = Candidate{
			Chunk: cand.Chunk,
			Score: cosineSimilarity(queryVec, chunkVecs[i]),
		}
	}

	sort.SliceStable(scored, func(a, b int) bool {
		return scored[a].Score > scored[b].Score
	})

	if topK > len(scored) {
		topK = len(scored)
	}
	return scored[:topK], nil
}

func (r *EmbeddingReranker) Ready() bool {
	return r.embedder != nil && r.embedder.Ready()
}

func cosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
