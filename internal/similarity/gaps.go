package similarity

import (
	"context"
	"math"
	"sort"
)

// GapNeighbor 空隙附近的文章
type GapNeighbor struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Distance float64 `json:"distance"`
}

// SemanticGap 语义空间中的低密度网格单元
type SemanticGap struct {
	X             float64       `json:"x"`
	Y             float64       `json:"y"`
	Density       float64       `json:"density"`
	NearestPapers []GapNeighbor `json:"nearest_papers"`
	GapScore      float64       `json:"gap_score"`
}

// SamplePaper 簇内示例文章
type SamplePaper struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// UnderexploredCluster 规模偏小的簇及其特征
type UnderexploredCluster struct {
	Cluster          int           `json:"cluster"`
	Size             int           `json:"size"`
	Percentage       float64       `json:"percentage"`
	YearRange        []int         `json:"year_range,omitempty"`
	TopKeywords      []string      `json:"top_keywords"`
	SamplePapers     []SamplePaper `json:"sample_papers"`
	ExplorationScore float64       `json:"exploration_score"`
}

// FindSemanticGaps 在PCA二维投影上找低密度区域。
// 点数少于10时网格密度没有意义，直接返回空。
func (e *Engine) FindSemanticGaps(ctx context.Context, gridSize int, threshold float64) ([]SemanticGap, error) {
	if gridSize < 2 {
		gridSize = 20
	}

	projection, err := e.Projection(ctx, 2, nil)
	if err != nil {
		return nil, err
	}
	points := projection.Points
	if len(points) < 10 {
		return []SemanticGap{}, nil
	}

	xMin, xMax := points[0].X, points[0].X
	yMin, yMax := points[0].Y, points[0].Y
	for _, p := range points {
		xMin = math.Min(xMin, p.X)
		xMax = math.Max(xMax, p.X)
		yMin = math.Min(yMin, p.Y)
		yMax = math.Max(yMax, p.Y)
	}

	cells := gridSize - 1
	xStep := (xMax - xMin) / float64(cells)
	yStep := (yMax - yMin) / float64(cells)
	if xStep == 0 || yStep == 0 {
		return []SemanticGap{}, nil
	}

	// 计数并归一化为密度
	grid := make([][]float64, cells)
	for i := range grid {
		grid[i] = make([]float64, cells)
	}
	for _, p := range points {
		xi := int((p.X - xMin) / xStep)
		yi := int((p.Y - yMin) / yStep)
		if xi >= cells {
			xi = cells - 1
		}
		if yi >= cells {
			yi = cells - 1
		}
		grid[xi][yi]++
	}
	total := float64(len(points))
	for i := range grid {
		for j := range grid[i] {
			grid[i][j] /= total
		}
	}

	var gaps []SemanticGap
	for i := 0; i < cells; i++ {
		for j := 0; j < cells; j++ {
			if grid[i][j] >= threshold {
				continue
			}
			cx := xMin + (float64(i)+0.5)*xStep
			cy := yMin + (float64(j)+0.5)*yStep

			gaps = append(gaps, SemanticGap{
				X:             cx,
				Y:             cy,
				Density:       grid[i][j],
				NearestPapers: nearestToCell(points, cx, cy, 5),
				GapScore:      1.0 - grid[i][j],
			})
		}
	}

	sort.SliceStable(gaps, func(a, b int) bool {
		return gaps[a].GapScore > gaps[b].GapScore
	})
	if len(gaps) > 10 {
		gaps = gaps[:10]
	}
	return gaps, nil
}

// nearestToCell 网格中心的平面距离最近的n个点
func nearestToCell(points []Point, cx, cy float64, n int) []GapNeighbor {
	type scored struct {
		point    Point
		distance float64
	}
	candidates := make([]scored, len(points))
	for i, p := range points {
		candidates[i] = scored{
			point:    p,
			distance: math.Hypot(p.X-cx, p.Y-cy),
		}
	}
	sort.SliceStable(candidates, func(a, b int) bool {
		return candidates[a].distance < candidates[b].distance
	})

	if n > len(candidates) {
		n = len(candidates)
	}
	out := make([]GapNeighbor, 0, n)
	for _, cand := range candidates[:n] {
		out = append(out, GapNeighbor{
			ID:       cand.point.ID,
			Title:    cand.point.Title,
			Distance: cand.distance,
		})
	}
	return out
}

// UnderexploredClusters 找占比不超过阈值的小簇，
// 按exploration score 1/(size+1)降序。
func (e *Engine) UnderexploredClusters(ctx context.Context, nClusters int, minSizeThreshold float64) ([]UnderexploredCluster, error) {
	if nClusters <= 0 {
		nClusters = 15
	}

	result, err := e.Clusters(ctx, nClusters, nil)
	if err != nil {
		return nil, err
	}
	totalArticles := e.Count()
	if totalArticles == 0 {
		return []UnderexploredCluster{}, nil
	}

	var underexplored []UnderexploredCluster
	for _, c := range result.Clusters {
		percentage := float64(c.Size) / float64(totalArticles)
		if percentage > minSizeThreshold {
			continue
		}

		var memberIDs []string
		for _, label := range result.Labels {
			if label.Cluster == c.Cluster {
				memberIDs = append(memberIDs, label.ID)
			}
		}

		var years []int
		keywordCounts := make(map[string]int)
		var keywordOrder []string
		samples := make([]SamplePaper, 0, 3)
		for _, id := range memberIDs {
			art, ok := e.GetArticle(id)
			if !ok {
				continue
			}
			if art.Year != 0 {
				years = append(years, art.Year)
			}
			for _, kw := range art.Keywords {
				if keywordCounts[kw] == 0 {
					keywordOrder = append(keywordOrder, kw)
				}
				keywordCounts[kw]++
			}
			if len(samples) < 3 {
				samples = append(samples, SamplePaper{ID: art.ID, Title: art.Title})
			}
		}

		entry := UnderexploredCluster{
			Cluster:          c.Cluster,
			Size:             c.Size,
			Percentage:       percentage * 100,
			TopKeywords:      topKeywords(keywordCounts, keywordOrder, 5),
			SamplePapers:     samples,
			ExplorationScore: 1.0 / float64(c.Size+1),
		}
		if len(years) > 0 {
			minYear, maxYear := years[0], years[0]
			for _, y := range years {
				if y < minYear {
					minYear = y
				}
				if y > maxYear {
					maxYear = y
				}
			}
			entry.YearRange = []int{minYear, maxYear}
		}
		underexplored = append(underexplored, entry)
	}

	sort.SliceStable(underexplored, func(a, b int) bool {
		return underexplored[a].ExplorationScore > underexplored[b].ExplorationScore
	})
	return underexplored, nil
}

// topKeywords 词频前n，频次相同按首次出现顺序
func topKeywords(counts map[string]int, order []string, n int) []string {
	sorted := append([]string(nil), order...)
	sort.SliceStable(sorted, func(a, b int) bool {
		return counts[sorted[a]] > counts[sorted[b]]
	})
	if n > len(sorted) {
		n = len(sorted)
	}
	return sorted[:n]
}
