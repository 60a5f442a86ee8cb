package similarity

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"sync"

	"github.com/research-orbits/backend-go/internal/llm"
	"github.com/research-orbits/backend-go/internal/logger"
	"github.com/research-orbits/backend-go/internal/metrics"
	"go.uber.org/zap"
)

// Article 相似度引擎里的文章，按id整体替换（upsert）
type Article struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Abstract string   `json:"abstract"`
	Year     int      `json:"year,omitempty"`
	Authors  []string `json:"authors"`
	Keywords []string `json:"keywords"`
}

// record id、文章与向量绑在一条记录里，避免平行数组错位
type record struct {
	article Article
	vector  []float64
}

// Neighbor 近邻查询结果行
type Neighbor struct {
	ID    string  `json:"id"`
	Title string  `json:"title"`
	Year  int     `json:"year,omitempty"`
	Score float64 `json:"score"`
}

// MatrixResult 相似度热力图数据
type MatrixResult struct {
	IDs    []string    `json:"ids"`
	Matrix [][]float64 `json:"matrix"`
}

// Point 二维散点
type Point struct {
	ID       string   `json:"id"`
	X        float64  `json:"x"`
	Y        float64  `json:"y"`
	Title    string   `json:"title"`
	Year     int      `json:"year,omitempty"`
	Authors  []string `json:"authors"`
	Keywords []string `json:"keywords"`
}

// ProjectionResult PCA投影结果
type ProjectionResult struct {
	Points            []Point   `json:"points"`
	ExplainedVariance []float64 `json:"explained_variance"`
}

// ClusterLabel 单篇文章的簇标签
type ClusterLabel struct {
	ID      string `json:"id"`
	Cluster int    `json:"cluster"`
}

// ClusterSize 簇规模
type ClusterSize struct {
	Cluster int `json:"cluster"`
	Size    int `json:"size"`
}

// ClustersResult k-means聚类结果
type ClustersResult struct {
	Labels   []ClusterLabel `json:"labels"`
	Clusters []ClusterSize  `json:"clusters"`
}

// Engine 文章相似度引擎。
// 状态机两态：clean（索引与当前文章集一致）/ dirty（有过写入）。
// 任何读操作先把dirty转成clean：全量重算向量矩阵，不做增量——
// 预期语料规模下嵌入够便宜，增量更新不值得复杂度。
type Engine struct {
	embedder    llm.Embedder
	defaultK    int
	randomState int64

	mu       sync.RWMutex
	articles map[string]Article
	order    []string
	records  []record
	dirty    bool
}

// NewEngine 创建相似度引擎，显式构造并注入，不用隐式全局单例
func NewEngine(embedder llm.Embedder, defaultK int, randomState int64) *Engine {
	if defaultK <= 0 {
		defaultK = 3
	}
	return &Engine{
		embedder:    embedder,
		defaultK:    defaultK,
		randomState: randomState,
		articles:    make(map[string]Article),
		dirty:       true,
	}
}

// UpsertMany 批量按id替换，置dirty
func (e *Engine) UpsertMany(items []Article) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, item := range items {
		if item.ID == "" {
			continue
		}
		if item.Title == "" {
			item.Title = fmt.Sprintf("Article %s", item.ID)
		}
		if _, exists := e.articles[item.ID]; !exists {
			e.order = append(e.order, item.ID)
		}
		e.articles[item.ID] = item
	}
	e.dirty = true
}

// UpsertOne 单篇upsert
func (e *Engine) UpsertOne(item Article) {
	e.UpsertMany([]Article{item})
}

// AllArticles 返回全部文章
func (e *Engine) AllArticles() []Article {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]Article, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, e.articles[id])
	}
	return out
}

// GetArticle 按id取文章
func (e *Engine) GetArticle(id string) (Article, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	art, ok := e.articles[id]
	return art, ok
}

// Count 文章数
func (e *Engine) Count() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.articles)
}

// Clear 清空全部状态
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.articles = make(map[string]Article)
	e.order = nil
	e.records = nil
	e.dirty = false
}

// LoadMock 从JSON文件批量加载文章（开发/演示数据）
func (e *Engine) LoadMock(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("读取mock数据失败: %w", err)
	}
	var items []Article
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("解析mock数据失败: %w", err)
	}
	e.UpsertMany(items)
	logger.Info("mock articles loaded",
		zap.String("path", path),
		zap.Int("count", len(items)))
	return nil
}

// ensureIndex dirty->clean：重算全部向量。写锁内执行，重建串行化。
func (e *Engine) ensureIndex(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.dirty {
		return nil
	}
	if len(e.order) == 0 {
		e.records = nil
		e.dirty = false
		return nil
	}

	abstracts := make([]string, len(e.order))
	for i, id := range e.order {
		abstracts[i] = e.articles[id].Abstract
	}

	vectors, err := e.embedder.EmbedBatch(ctx, abstracts)
	if err != nil {
		return err
	}
	if len(vectors) != len(e.order) {
		return fmt.Errorf("embedding count mismatch: got %d, want %d", len(vectors), len(e.order))
	}

	records := make([]record, len(e.order))
	for i, id := range e.order {
		records[i] = record{
			article: e.articles[id],
			vector:  normalize(vectors[i]),
		}
	}
	e.records = records
	e.dirty = false

	metrics.IndexRebuildsTotal.Inc()
	logger.Debug("similarity index rebuilt", zap.Int("articles", len(records)))
	return nil
}

// snapshotRecords 重建后取records快照
func (e *Engine) snapshotRecords(ctx context.Context) ([]record, error) {
	if err := e.ensureIndex(ctx); err != nil {
		return nil, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]record, len(e.records))
	copy(out, e.records)
	return out, nil
}

// TopKByText 文本近邻：不排除任何文章
func (e *Engine) TopKByText(ctx context.Context, text string, k int) ([]Neighbor, error) {
	records, err := e.snapshotRecords(ctx)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return []Neighbor{}, nil
	}
	if k <= 0 {
		k = e.defaultK
	}

	raw, err := e.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	query := normalize(raw)

	return nearest(records, query, k, ""), nil
}

// TopKByID 按已有文章的向量找近邻，排除自身
func (e *Engine) TopKByID(ctx context.Context, id string, k int) ([]Neighbor, error) {
	records, err := e.snapshotRecords(ctx)
	if err != nil {
		return nil, err
	}
	if k <= 0 {
		k = e.defaultK
	}

	var query []float64
	for _, rec := range records {
		if rec.article.ID == id {
			query = rec.vector
			break
		}
	}
	if query == nil {
		return []Neighbor{}, nil
	}

	return nearest(records, query, k, id), nil
}

// nearest 余弦相似度近邻，excludeID非空时跳过该id
func nearest(records []record, query []float64, k int, excludeID string) []Neighbor {
	type scored struct {
		article Article
		score   float64
	}
	candidates := make([]scored, 0, len(records))
	for _, rec := range records {
		if excludeID != "" && rec.article.ID == excludeID {
			continue
		}
		candidates = append(candidates, scored{
			article: rec.article,
			score:   dot(query, rec.vector),
		})
	}

	sort.SliceStable(candidates, func(a, b int) bool {
		return candidates[a].score > candidates[b].score
	})

	if k > len(candidates) {
		k = len(candidates)
	}
	rows := make([]Neighbor, 0, k)
	for _, cand := range candidates[:k] {
		rows = append(rows, Neighbor{
			ID:    cand.article.ID,
			Title: cand.article.Title,
			Year:  cand.article.Year,
			Score: cand.score,
		})
	}
	return rows
}

// SimilarityMatrix 两两余弦相似度，ids为空时取全集
func (e *Engine) SimilarityMatrix(ctx context.Context, ids []string) (MatrixResult, error) {
	records, err := e.selectRecords(ctx, ids)
	if err != nil {
		return MatrixResult{}, err
	}
	if len(records) == 0 {
		return MatrixResult{IDs: []string{}, Matrix: [][]float64{}}, nil
	}

	n := len(records)
	outIDs := make([]string, n)
	matrix := make([][]float64, n)
	for i := 0; i < n; i++ {
		outIDs[i] = records[i].article.ID
		matrix[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			matrix[i][j] = dot(records[i].vector, records[j].vector)
		}
	}
	return MatrixResult{IDs: outIDs, Matrix: matrix}, nil
}

// Projection PCA降维投影
func (e *Engine) Projection(ctx context.Context, nComponents int, ids []string) (ProjectionResult, error) {
	records, err := e.selectRecords(ctx, ids)
	if err != nil {
		return ProjectionResult{}, err
	}
	if len(records) == 0 {
		return ProjectionResult{Points: []Point{}}, nil
	}
	if nComponents <= 0 {
		nComponents = 2
	}

	data := make([][]float64, len(records))
	for i, rec := range records {
		data[i] = rec.vector
	}
	result := pca(data, nComponents)

	points := make([]Point, len(records))
	for i, rec := range records {
		point := Point{
			ID:       rec.article.ID,
			Title:    rec.article.Title,
			Year:     rec.article.Year,
			Authors:  rec.article.Authors,
			Keywords: rec.article.Keywords,
		}
		if len(result.projected[i]) > 0 {
			point.X = result.projected[i][0]
		}
		if len(result.projected[i]) > 1 {
			point.Y = result.projected[i][1]
		}
		points[i] = point
	}

	return ProjectionResult{Points: points, ExplainedVariance: result.explainedVariance}, nil
}

// Clusters k-means聚类，簇按规模降序
func (e *Engine) Clusters(ctx context.Context, k int, ids []string) (ClustersResult, error) {
	records, err := e.selectRecords(ctx, ids)
	if err != nil {
		return ClustersResult{}, err
	}
	if len(records) == 0 {
		return ClustersResult{Labels: []ClusterLabel{}, Clusters: []ClusterSize{}}, nil
	}
	if k <= 0 {
		k = 5
	}

	data := make([][]float64, len(records))
	for i, rec := range records {
		data[i] = rec.vector
	}
	labels := kmeans(data, k, e.randomState)

	counts := make(map[int]int)
	labelRows := make([]ClusterLabel, len(records))
	for i, label := range labels {
		counts[label]++
		labelRows[i] = ClusterLabel{ID: records[i].article.ID, Cluster: label}
	}

	sizes := make([]ClusterSize, 0, len(counts))
	for cluster, size := range counts {
		sizes = append(sizes, ClusterSize{Cluster: cluster, Size: size})
	}
	sort.SliceStable(sizes, func(a, b int) bool {
		if sizes[a].Size != sizes[b].Size {
			return sizes[a].Size > sizes[b].Size
		}
		return sizes[a].Cluster < sizes[b].Cluster
	})

	return ClustersResult{Labels: labelRows, Clusters: sizes}, nil
}

// selectRecords 重建索引并按ids过滤，保持索引顺序
func (e *Engine) selectRecords(ctx context.Context, ids []string) ([]record, error) {
	records, err := e.snapshotRecords(ctx)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return records, nil
	}

	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var selected []record
	for _, rec := range records {
		if want[rec.article.ID] {
			selected = append(selected, rec)
		}
	}
	return selected, nil
}

func normalize(vec []float32) []float64 {
	out := make([]float64, len(vec))
	var norm float64
	for i, v := range vec {
		out[i] = float64(v)
		norm += float64(v) * float64(v)
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return out
	}
	for i := range out {
		out[i] /= norm
	}
	return out
}

func dot(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
