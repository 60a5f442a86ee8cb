package similarity

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// planarEmbedder 直接把预置的平面向量当嵌入，测试里用来控制几何
type planarEmbedder struct {
	vectors map[string][]float32
}

func (p *planarEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if vec, ok := p.vectors[text]; ok {
		return vec, nil
	}
	return []float32{1, 0, 0}, nil
}

func (p *planarEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, _ := p.Embed(ctx, text)
		out[i] = vec
	}
	return out, nil
}

func (p *planarEmbedder) Model() string { return "planar" }
func (p *planarEmbedder) Ready() bool   { return true }

// gapFixture 三个紧凑的团占据三个角，留出一片空白区域
func gapFixture() (*planarEmbedder, []Article) {
	embedder := &planarEmbedder{vectors: make(map[string][]float32)}
	var articles []Article

	blobs := [][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	}
	id := 0
	for b, base := range blobs {
		for j := 0; j < 5; j++ {
			id++
			abstract := fmt.Sprintf("blob %d member %d", b, j)
			jitter := float32(j) * 0.01
			vec := []float32{base[0] + jitter, base[1] + jitter/2, base[2]}
			embedder.vectors[abstract] = vec
			articles = append(articles, Article{
				ID:       fmt.Sprintf("%d", id),
				Title:    fmt.Sprintf("Paper %d", id),
				Abstract: abstract,
				Year:     2015 + b,
				Keywords: []string{fmt.Sprintf("topic%d", b)},
			})
		}
	}
	return embedder, articles
}

func TestFindSemanticGaps(t *testing.T) {
	embedder, articles := gapFixture()
	engine := NewEngine(embedder, 3, 42)
	engine.UpsertMany(articles)

	gaps, err := engine.FindSemanticGaps(context.Background(), 10, 0.05)
	require.NoError(t, err)
	require.NotEmpty(t, gaps)
	assert.LessOrEqual(t, len(gaps), 10)

	for i, gap := range gaps {
		// 只报告低密度单元
		assert.Less(t, gap.Density, 0.05)
		assert.InDelta(t, 1.0-gap.Density, gap.GapScore, 1e-9)
		assert.Len(t, gap.NearestPapers, 5)
		if i > 0 {
			assert.GreaterOrEqual(t, gaps[i-1].GapScore, gap.GapScore)
		}
		// 最近文章按平面距离升序
		for j := 1; j < len(gap.NearestPapers); j++ {
			assert.LessOrEqual(t, gap.NearestPapers[j-1].Distance, gap.NearestPapers[j].Distance)
		}
	}
}

func TestFindSemanticGapsTooFewPoints(t *testing.T) {
	embedder, articles := gapFixture()
	engine := NewEngine(embedder, 3, 42)
	engine.UpsertMany(articles[:9])

	gaps, err := engine.FindSemanticGaps(context.Background(), 10, 0.05)
	require.NoError(t, err)
	assert.Empty(t, gaps)
}

func TestFindSemanticGapsDenseCellsExcluded(t *testing.T) {
	embedder, articles := gapFixture()
	engine := NewEngine(embedder, 3, 42)
	engine.UpsertMany(articles)

	// 每个团5/15 = 0.33的密度，远超阈值，不该出现在空隙里
	gaps, err := engine.FindSemanticGaps(context.Background(), 4, 0.2)
	require.NoError(t, err)
	for _, gap := range gaps {
		assert.Less(t, gap.Density, 0.2)
	}
}

func TestUnderexploredClusters(t *testing.T) {
	embedder, articles := gapFixture()
	// 追加一篇孤立文章形成小簇
	embedder.vectors["outlier topic"] = []float32{-1, -1, -1}
	articles = append(articles, Article{
		ID: "99", Title: "Outlier", Abstract: "outlier topic",
		Year: 2024, Keywords: []string{"rare", "rare2"},
	})

	engine := NewEngine(embedder, 3, 42)
	engine.UpsertMany(articles)

	clusters, err := engine.UnderexploredClusters(context.Background(), 4, 0.1)
	require.NoError(t, err)
	require.NotEmpty(t, clusters)

	// 孤立文章的单元素簇分数最高
	top := clusters[0]
	assert.Equal(t, 1, top.Size)
	assert.InDelta(t, 0.5, top.ExplorationScore, 1e-9)
	require.Len(t, top.SamplePapers, 1)
	assert.Equal(t, "99", top.SamplePapers[0].ID)
	assert.Equal(t, []int{2024, 2024}, top.YearRange)
	assert.Equal(t, []string{"rare", "rare2"}, top.TopKeywords)

	for i := 1; i < len(clusters); i++ {
		assert.GreaterOrEqual(t, clusters[i-1].ExplorationScore, clusters[i].ExplorationScore)
	}
}

func TestUnderexploredClustersEmptyEngine(t *testing.T) {
	engine := NewEngine(&planarEmbedder{}, 3, 42)
	clusters, err := engine.UnderexploredClusters(context.Background(), 5, 0.05)
	require.NoError(t, err)
	assert.Empty(t, clusters)
}
