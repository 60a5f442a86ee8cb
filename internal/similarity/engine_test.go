package similarity

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bagEmbedder 词袋向量，固定词表，确定性
type bagEmbedder struct {
	vocab      []string
	batchCalls int
}

func newBagEmbedder() *bagEmbedder {
	return &bagEmbedder{vocab: []string{
		"quantum", "computing", "error", "correction", "codes",
		"bird", "migration", "patterns", "plants", "gravity",
	}}
}

func (b *bagEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, len(b.vocab))
	for _, word := range strings.Fields(strings.ToLower(text)) {
		for i, v := range b.vocab {
			if word == v {
				vec[i]++
			}
		}
	}
	return vec, nil
}

func (b *bagEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	b.batchCalls++
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, _ := b.Embed(ctx, text)
		out[i] = vec
	}
	return out, nil
}

func (b *bagEmbedder) Model() string { return "bag" }
func (b *bagEmbedder) Ready() bool   { return true }

func threeArticles() []Article {
	return []Article{
		{ID: "1", Title: "QC Error Correction", Abstract: "quantum computing error correction", Year: 2022, Keywords: []string{"quantum"}},
		{ID: "2", Title: "QEC Codes", Abstract: "quantum error correction codes", Year: 2023, Keywords: []string{"quantum", "codes"}},
		{ID: "3", Title: "Bird Migration", Abstract: "bird migration patterns", Year: 2020, Keywords: []string{"birds"}},
	}
}

func TestTopKByIDPrefersCloserTopic(t *testing.T) {
	engine := NewEngine(newBagEmbedder(), 3, 42)
	engine.UpsertMany(threeArticles())

	rows, err := engine.TopKByID(context.Background(), "1", 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	// 主题更近的文章排在前面，且排除自身
	assert.Equal(t, "2", rows[0].ID)
}

func TestTopKByIDExcludesSelf(t *testing.T) {
	engine := NewEngine(newBagEmbedder(), 3, 42)
	engine.UpsertMany(threeArticles())

	rows, err := engine.TopKByID(context.Background(), "1", 10)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	for _, row := range rows {
		assert.NotEqual(t, "1", row.ID)
	}
}

func TestTopKByIDUnknown(t *testing.T) {
	engine := NewEngine(newBagEmbedder(), 3, 42)
	engine.UpsertMany(threeArticles())

	rows, err := engine.TopKByID(context.Background(), "missing", 3)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestTopKByTextExcludesNothing(t *testing.T) {
	engine := NewEngine(newBagEmbedder(), 3, 42)
	engine.UpsertMany(threeArticles())

	rows, err := engine.TopKByText(context.Background(), "quantum error correction", 3)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Contains(t, []string{"1", "2"}, rows[0].ID)
	assert.Equal(t, "3", rows[2].ID)
}

func TestDirtyFlagRebuildOnlyAfterWrite(t *testing.T) {
	embedder := newBagEmbedder()
	engine := NewEngine(embedder, 3, 42)
	engine.UpsertMany(threeArticles())

	_, err := engine.TopKByText(context.Background(), "quantum", 2)
	require.NoError(t, err)
	assert.Equal(t, 1, embedder.batchCalls)

	// 没有写入，不应重建
	_, err = engine.TopKByText(context.Background(), "bird", 2)
	require.NoError(t, err)
	assert.Equal(t, 1, embedder.batchCalls)

	// upsert置dirty，下一次读重建并反映新文章
	engine.UpsertOne(Article{ID: "4", Title: "Plants", Abstract: "plants gravity"})
	rows, err := engine.TopKByText(context.Background(), "plants gravity", 1)
	require.NoError(t, err)
	assert.Equal(t, 2, embedder.batchCalls)
	require.Len(t, rows, 1)
	assert.Equal(t, "4", rows[0].ID)
}

func TestUpsertReplacesByID(t *testing.T) {
	engine := NewEngine(newBagEmbedder(), 3, 42)
	engine.UpsertMany(threeArticles())
	engine.UpsertOne(Article{ID: "3", Title: "Updated", Abstract: "bird migration patterns"})

	assert.Equal(t, 3, engine.Count())
	art, ok := engine.GetArticle("3")
	require.True(t, ok)
	assert.Equal(t, "Updated", art.Title)
}

func TestClearEmptiesEverything(t *testing.T) {
	engine := NewEngine(newBagEmbedder(), 3, 42)
	engine.UpsertMany(threeArticles())
	engine.Clear()

	assert.Zero(t, engine.Count())
	rows, err := engine.TopKByText(context.Background(), "quantum", 3)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestSimilarityMatrix(t *testing.T) {
	engine := NewEngine(newBagEmbedder(), 3, 42)
	engine.UpsertMany(threeArticles())

	result, err := engine.SimilarityMatrix(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, result.IDs, 3)
	require.Len(t, result.Matrix, 3)

	for i := range result.Matrix {
		assert.InDelta(t, 1.0, result.Matrix[i][i], 1e-9)
		for j := range result.Matrix[i] {
			assert.InDelta(t, result.Matrix[i][j], result.Matrix[j][i], 1e-9)
		}
	}

	// 同主题相似度高于跨主题
	assert.Greater(t, result.Matrix[0][1], result.Matrix[0][2])
}

func TestSimilarityMatrixSubset(t *testing.T) {
	engine := NewEngine(newBagEmbedder(), 3, 42)
	engine.UpsertMany(threeArticles())

	result, err := engine.SimilarityMatrix(context.Background(), []string{"1", "3", "missing"})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "3"}, result.IDs)
	assert.Len(t, result.Matrix, 2)
}

func TestProjectionShape(t *testing.T) {
	engine := NewEngine(newBagEmbedder(), 3, 42)
	engine.UpsertMany(threeArticles())

	result, err := engine.Projection(context.Background(), 2, nil)
	require.NoError(t, err)
	require.Len(t, result.Points, 3)
	require.Len(t, result.ExplainedVariance, 2)

	// 解释方差占比在[0,1]且降序
	assert.GreaterOrEqual(t, result.ExplainedVariance[0], result.ExplainedVariance[1])
	for _, v := range result.ExplainedVariance {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0+1e-9)
	}
}

func TestClustersSeparatesTopics(t *testing.T) {
	engine := NewEngine(newBagEmbedder(), 3, 42)
	engine.UpsertMany(threeArticles())

	result, err := engine.Clusters(context.Background(), 2, nil)
	require.NoError(t, err)
	require.Len(t, result.Labels, 3)

	labelOf := make(map[string]int)
	for _, l := range result.Labels {
		labelOf[l.ID] = l.Cluster
	}
	assert.Equal(t, labelOf["1"], labelOf["2"])
	assert.NotEqual(t, labelOf["1"], labelOf["3"])

	// 簇按规模降序
	require.Len(t, result.Clusters, 2)
	assert.GreaterOrEqual(t, result.Clusters[0].Size, result.Clusters[1].Size)
}

func TestClustersDeterministicWithFixedSeed(t *testing.T) {
	run := func() ClustersResult {
		engine := NewEngine(newBagEmbedder(), 3, 42)
		engine.UpsertMany(threeArticles())
		result, err := engine.Clusters(context.Background(), 2, nil)
		require.NoError(t, err)
		return result
	}
	assert.Equal(t, run(), run())
}

func TestEmptyEngineReads(t *testing.T) {
	engine := NewEngine(newBagEmbedder(), 3, 42)

	rows, err := engine.TopKByText(context.Background(), "anything", 3)
	require.NoError(t, err)
	assert.Empty(t, rows)

	matrix, err := engine.SimilarityMatrix(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, matrix.IDs)

	projection, err := engine.Projection(context.Background(), 2, nil)
	require.NoError(t, err)
	assert.Empty(t, projection.Points)
}
