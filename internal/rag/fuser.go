package rag

import (
	"context"
	"math"
	"sort"

	"github.com/research-orbits/backend-go/internal/llm"
	"github.com/research-orbits/backend-go/internal/logger"
	"go.uber.org/zap"
)

// HybridFuser 合并稀疏与稠密两路检索结果。
// 稠密查询用HyDE短文，稀疏查询用原问题。
// 两路都命中的切片累加加权分，单路命中只计单项，
// 不做朴素的并集交织：既奖励双信号冗余命中，
// 也不惩罚只被词面信号找到的切片。
type HybridFuser struct {
	sparse       SparseIndex
	dense        DenseIndex
	embedder     llm.Embedder
	sparseWeight float64
	denseWeight  float64
	sparseK      int
	denseK       int
}

// NewHybridFuser 创建融合器
func NewHybridFuser(sparse SparseIndex, dense DenseIndex, embedder llm.Embedder, sparseWeight, denseWeight float64, sparseK, denseK int) *HybridFuser {
	if sparseK <= 0 {
		sparseK = 10
	}
	if denseK <= 0 {
		denseK = 10
	}
	return &HybridFuser{
		sparse:       sparse,
		dense:        dense,
		embedder:     embedder,
		sparseWeight: sparseWeight,
		denseWeight:  denseWeight,
		sparseK:      sparseK,
		denseK:       denseK,
	}
}

// SetWeights 热更新融合权重
func (f *HybridFuser) SetWeights(sparseWeight, denseWeight float64) {
	f.sparseWeight = sparseWeight
	f.denseWeight = denseWeight
}

// Retrieve 执行两路检索并融合。
// 返回按融合分降序的候选列表，不截断——截断是重排器的职责。
func (f *HybridFuser) Retrieve(ctx context.Context, question, densQuery string) ([]Candidate, error) {
	denseVector, err := f.embedder.Embed(ctx, densQuery)
	if err != nil {
		return nil, err
	}

	denseResults, err := f.dense.Search(ctx, denseVector, f.denseK)
	if err != nil {
		return nil, err
	}

	sparseResults, err := f.sparse.Search(ctx, question, f.sparseK)
	if err != nil {
		return nil, err
	}

	fused := f.Fuse(denseResults, sparseResults)

	logger.Debug("hybrid retrieval complete",
		zap.Int("dense_hits", len(denseResults)),
		zap.Int("sparse_hits", len(sparseResults)),
		zap.Int("fused", len(fused)))
	return fused, nil
}

// Fuse 纯融合计算，便于单测。
// 稠密结果的Score是距离d，换算为相似度1/(1+|d|)；
// 稀疏结果按名次换算为1/(rank+1)，rank从0开始。
func (f *HybridFuser) Fuse(denseResults, sparseResults []Candidate) []Candidate {
	type fusion struct {
		chunk  Chunk
		dense  float64
		sparse float64
	}

	merged := make(map[ChunkKey]*fusion)
	var order []ChunkKey

	for _, cand := range denseResults {
		key := cand.Chunk.Key()
		sim := 1.0 / (1.0 + math.Abs(cand.Score))
		if entry, ok := merged[key]; ok {
			entry.dense = sim
		} else {
			merged[key] = &fusion{chunk: cand.Chunk, dense: sim}
			order = append(order, key)
		}
	}

	for rank, cand := range sparseResults {
		key := cand.Chunk.Key()
		rankScore := 1.0 / float64(rank+1)
		if entry, ok := merged[key]; ok {
			entry.sparse = rankScore
		} else {
			merged[key] = &fusion{chunk: cand.Chunk, sparse: rankScore}
			order = append(order, key)
		}
	}

	combined := make([]Candidate, 0, len(order))
	for _, key := range order {
		entry := merged[key]
		combined = append(combined, Candidate{
			Chunk: entry.chunk,
			Score: f.denseWeight*entry.dense + f.sparseWeight*entry.sparse,
		})
	}

	sort.SliceStable(combined, func(a, b int) bool {
		return combined[a].Score > combined[b].Score
	})
	return combined
}
