package similarity

import (
	"math"
	"math/rand"
)

const kmeansMaxIterations = 100

// kmeans k-means++初始化 + Lloyd迭代。seed固定保证结果可复现。
func kmeans(data [][]float64, k int, seed int64) []int {
	n := len(data)
	if n == 0 {
		return nil
	}
	if k < 1 {
		k = 1
	}
	if k > n {
		k = n
	}

	rng := rand.New(rand.NewSource(seed))
	centroids := initCentroids(data, k, rng)
	labels := make([]int, n)

	for iter := 0; iter < kmeansMaxIterations; iter++ {
		changed := false
		for i, point := range data {
			best := 0
			bestDist := math.MaxFloat64
			for c, centroid := range centroids {
				d := squaredDistance(point, centroid)
				if d < bestDist {
					bestDist = d
					best = c
				}
			}
			if labels[i] != best {
				labels[i] = best
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}

		dim := len(data[0])
		sums := make([][]float64, k)
		counts := make([]int, k)
		for c := range sums {
			sums[c] = make([]float64, dim)
		}
		for i, point := range data {
			c := labels[i]
			counts[c]++
			for j, v := range point {
				sums[c][j] += v
			}
		}
		for c := range centroids {
			if counts[c] == 0 {
				// 空簇：重置到随机点
				centroids[c] = append([]float64(nil), data[rng.Intn(n)]...)
				continue
			}
			for j := range centroids[c] {
				centroids[c][j] = sums[c][j] / float64(counts[c])
			}
		}
	}

	return labels
}

// initCentroids k-means++：新质心以距现有质心距离平方为权重抽样
func initCentroids(data [][]float64, k int, rng *rand.Rand) [][]float64 {
	n := len(data)
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, append([]float64(nil), data[rng.Intn(n)]...))

	for len(centroids) < k {
		weights := make([]float64, n)
		total := 0.0
		for i, point := range data {
			minDist := math.MaxFloat64
			for _, centroid := range centroids {
				if d := squaredDistance(point, centroid); d < minDist {
					minDist = d
				}
			}
			weights[i] = minDist
			total += minDist
		}

		if total == 0 {
			// 所有点重合，随便挑
			centroids = append(centroids, append([]float64(nil), data[rng.Intn(n)]...))
			continue
		}

		target := rng.Float64() * total
		acc := 0.0
		chosen := n - 1
		for i, w := range weights {
			acc += w
			if acc >= target {
				chosen = i
				break
			}
		}
		centroids = append(centroids, append([]float64(nil), data[chosen]...))
	}
	return centroids
}

func squaredDistance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return sum
}
