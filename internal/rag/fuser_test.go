package rag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuseScoreAdditivity(t *testing.T) {
	fuser := NewHybridFuser(nil, nil, nil, 0.3, 0.7, 10, 10)

	shared := Chunk{Source: "a.pdf", ChunkIndex: 0, Content: "shared"}
	denseOnly := Chunk{Source: "a.pdf", ChunkIndex: 1, Content: "dense only"}
	sparseOnly := Chunk{Source: "b.pdf", ChunkIndex: 0, Content: "sparse only"}

	denseResults := []Candidate{
		{Chunk: shared, Score: 0.5},    // 距离0.5 -> 相似度1/1.5
		{Chunk: denseOnly, Score: 1.0}, // 相似度1/2
	}
	sparseResults := []Candidate{
		{Chunk: sparseOnly, Score: 9.9}, // rank 0 -> 1.0
		{Chunk: shared, Score: 5.5},     // rank 1 -> 0.5
	}

	fused := fuser.Fuse(denseResults, sparseResults)
	require.Len(t, fused, 3)

	scores := make(map[ChunkKey]float64)
	for _, cand := range fused {
		scores[cand.Chunk.Key()] = cand.Score
	}

	// 双路命中 = 两个加权项之和
	assert.InDelta(t, 0.7*(1.0/1.5)+0.3*0.5, scores[shared.Key()], 1e-12)
	// 单路命中只有单项
	assert.InDelta(t, 0.7*(1.0/2.0), scores[denseOnly.Key()], 1e-12)
	assert.InDelta(t, 0.3*1.0, scores[sparseOnly.Key()], 1e-12)
}

func TestFuseSortedDescendingNoTruncation(t *testing.T) {
	fuser := NewHybridFuser(nil, nil, nil, 0.5, 0.5, 2, 2)

	var denseResults, sparseResults []Candidate
	for i := 0; i < 4; i++ {
		denseResults = append(denseResults, Candidate{
			Chunk: Chunk{Source: "d.pdf", ChunkIndex: i},
			Score: float64(i),
		})
	}
	for i := 0; i < 4; i++ {
		sparseResults = append(sparseResults, Candidate{
			Chunk: Chunk{Source: "s.pdf", ChunkIndex: i},
			Score: float64(10 - i),
		})
	}

	fused := fuser.Fuse(denseResults, sparseResults)

	// 融合不截断，全部候选保留
	assert.Len(t, fused, 8)
	for i := 1; i < len(fused); i++ {
		assert.GreaterOrEqual(t, fused[i-1].Score, fused[i].Score)
	}
}

func TestFuseNegativeDistanceUsesAbs(t *testing.T) {
	fuser := NewHybridFuser(nil, nil, nil, 0.0, 1.0, 10, 10)

	fused := fuser.Fuse([]Candidate{
		{Chunk: Chunk{Source: "a", ChunkIndex: 0}, Score: -1.0},
	}, nil)

	require.Len(t, fused, 1)
	assert.InDelta(t, 0.5, fused[0].Score, 1e-12)
}

func TestFuseEmptyInputs(t *testing.T) {
	fuser := NewHybridFuser(nil, nil, nil, 0.3, 0.7, 10, 10)
	assert.Empty(t, fuser.Fuse(nil, nil))
}
