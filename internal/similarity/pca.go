package similarity

import (
	"math"
)

// pcaResult 投影坐标与各主成分的解释方差占比
type pcaResult struct {
	projected         [][]float64
	explainedVariance []float64
}

// pca 主成分分析：均值中心化 -> 协方差矩阵 -> Jacobi特征分解 ->
// 取前nComponents个特征向量投影。
func pca(data [][]float64, nComponents int) pcaResult {
	n := len(data)
	if n == 0 {
		return pcaResult{}
	}
	dim := len(data[0])
	if nComponents > dim {
		nComponents = dim
	}
	if nComponents > n {
		nComponents = n
	}

	// 中心化
	mean := make([]float64, dim)
	for _, row := range data {
		for j, v := range row {
			mean[j] += v
		}
	}
	for j := range mean {
		mean[j] /= float64(n)
	}
	centered := make([][]float64, n)
	for i, row := range data {
		centered[i] = make([]float64, dim)
		for j, v := range row {
			centered[i][j] = v - mean[j]
		}
	}

	// 协方差矩阵
	cov := make([][]float64, dim)
	for i := range cov {
		cov[i] = make([]float64, dim)
	}
	denom := float64(n - 1)
	if n == 1 {
		denom = 1
	}
	for _, row := range centered {
		for i := 0; i < dim; i++ {
			for j := i; j < dim; j++ {
				cov[i][j] += row[i] * row[j] / denom
			}
		}
	}
	for i := 0; i < dim; i++ {
		for j := 0; j < i; j++ {
			cov[i][j] = cov[j][i]
		}
	}

	eigenvalues, eigenvectors := jacobiEigen(cov)

	// 按特征值降序取主成分
	order := argsortDescending(eigenvalues)

	totalVariance := 0.0
	for _, v := range eigenvalues {
		if v > 0 {
			totalVariance += v
		}
	}

	components := make([][]float64, nComponents)
	explained := make([]float64, nComponents)
	for c := 0; c < nComponents; c++ {
		idx := order[c]
		vec := make([]float64, dim)
		for j := 0; j < dim; j++ {
			vec[j] = eigenvectors[j][idx]
		}
		fixSign(vec)
		components[c] = vec
		if totalVariance > 0 && eigenvalues[idx] > 0 {
			explained[c] = eigenvalues[idx] / totalVariance
		}
	}

	projected := make([][]float64, n)
	for i, row := range centered {
		projected[i] = make([]float64, nComponents)
		for c, comp := range components {
			var dot float64
			for j := 0; j < dim; j++ {
				dot += row[j] * comp[j]
			}
			projected[i][c] = dot
		}
	}

	return pcaResult{projected: projected, explainedVariance: explained}
}

// fixSign 让绝对值最大的分量为正，消除特征向量的符号歧义
func fixSign(vec []float64) {
	maxAbs := 0.0
	maxIdx := 0
	for j, v := range vec {
		if math.Abs(v) > maxAbs {
			maxAbs = math.Abs(v)
			maxIdx = j
		}
	}
	if vec[maxIdx] < 0 {
		for j := range vec {
			vec[j] = -vec[j]
		}
	}
}

func argsortDescending(values []float64) []int {
	order := make([]int, len(values))
	for i := range order {
		order[i] = i
	}
	for i := 0; i < len(order)-1; i++ {
		for j := i + 1; j < len(order); j++ {
			if values[order[j]] > values[order[i]] {
				order[i], order[j] = order[j], order[i]
			}
		}
	}
	return order
}

// jacobiEigen 对称矩阵的Jacobi旋转特征分解。
// 返回特征值与列向量形式的特征向量矩阵。
func jacobiEigen(matrix [][]float64) ([]float64, [][]float64) {
	n := len(matrix)
	a := make([][]float64, n)
	for i := range a {
		a[i] = make([]float64, n)
		copy(a[i], matrix[i])
	}

	v := make([][]float64, n)
	for i := range v {
		v[i] = make([]float64, n)
		v[i][i] = 1
	}

	const maxSweeps = 100
	const eps = 1e-12

	for sweep := 0; sweep < maxSweeps; sweep++ {
		off := 0.0
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				off += a[i][j] * a[i][j]
			}
		}
		if off < eps {
			break
		}

		for p := 0; p < n-1; p++ {
			for q := p + 1; q < n; q++ {
				if math.Abs(a[p][q]) < eps {
					continue
				}

				theta := (a[q][q] - a[p][p]) / (2 * a[p][q])
				t := 1 / (math.Abs(theta) + math.Sqrt(theta*theta+1))
				if theta < 0 {
					t = -t
				}
				c := 1 / math.Sqrt(t*t+1)
				s := t * c

				for i := 0; i < n; i++ {
					aip := a[i][p]
					aiq := a[i][q]
					a[i][p] = c*aip - s*aiq
					a[i][q] = s*aip + c*aiq
				}
				for i := 0; i < n; i++ {
					api := a[p][i]
					aqi := a[q][i]
					a[p][i] = c*api - s*aqi
					a[q][i] = s*api + c*aqi
				}
				for i := 0; i < n; i++ {
					vip := v[i][p]
					viq := v[i][q]
					v[i][p] = c*vip - s*viq
					v[i][q] = s*vip + c*viq
				}
			}
		}
	}

	eigenvalues := make([]float64, n)
	for i := 0; i < n; i++ {
		eigenvalues[i] = a[i][i]
	}
	return eigenvalues, v
}
