// Package cluster 把学生按三科成绩聚类为画像（persona）。
package cluster

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
)

// KMeans 是 k-means++ 初始化的 Lloyd 聚类，相同参数与输入时结果确定。
type KMeans struct {
	K       int
	Seed    uint64
	NInit   int     // 不同初始化的次数，取 inertia 最小者
	MaxIter int     // 单次运行的最大迭代次数
	Tol     float64 // 质心移动平方和小于该值时停止
}

// NewKMeans 返回默认参数：seed 42，10 次初始化，最多 300 次迭代
func NewKMeans(k int) *KMeans {
	return &KMeans{K: k, Seed: 42, NInit: 10, MaxIter: 300, Tol: 1e-4}
}

// Fit 的结果
type Fit struct {
	Labels    []int
	Centroids [][]float64
	Inertia   float64
	Iter      int
}

// Fit 对 points（行优先）聚类
func (km *KMeans) Fit(points [][]float64) (*Fit, error) {
	if km.K <= 0 {
		return nil, fmt.Errorf("kmeans: k must be positive, got %d", km.K)
	}
	if len(points) < km.K {
		return nil, fmt.Errorf("kmeans: %d points is fewer than k=%d", len(points), km.K)
	}
	dim := len(points[0])
	for i, p := range points {
		if len(p) != dim {
			return nil, fmt.Errorf("kmeans: point %d has %d values, want %d", i, len(p), dim)
		}
	}

	nInit := km.NInit
	if nInit <= 0 {
		nInit = 1
	}
	rng := rand.New(rand.NewPCG(km.Seed, km.Seed))
	var best *Fit
	for run := 0; run < nInit; run++ {
		fit := km.lloyd(points, km.initPlusPlus(points, rng))
		if best == nil || fit.Inertia < best.Inertia {
			best = fit
		}
	}
	return best, nil
}

// initPlusPlus 按 k-means++ 选择初始质心：后续质心以到最近质心距离平方为权重抽样
func (km *KMeans) initPlusPlus(points [][]float64, rng *rand.Rand) [][]float64 {
	centroids := make([][]float64, 0, km.K)
	centroids = append(centroids, clone(points[rng.IntN(len(points))]))

	d2 := make([]float64, len(points))
	for i, p := range points {
		d2[i] = sqDist(p, centroids[0])
	}
	for len(centroids) < km.K {
		total := floats.Sum(d2)
		idx := 0
		if total > 0 {
			target := rng.Float64() * total
			var acc float64
			for i, d := range d2 {
				acc += d
				if acc >= target {
					idx = i
					break
				}
			}
		} else {
			idx = rng.IntN(len(points))
		}
		c := clone(points[idx])
		centroids = append(centroids, c)
		for i, p := range points {
			if d := sqDist(p, c); d < d2[i] {
				d2[i] = d
			}
		}
	}
	return centroids
}

func (km *KMeans) lloyd(points [][]float64, centroids [][]float64) *Fit {
	labels := make([]int, len(points))
	dim := len(points[0])
	maxIter := km.MaxIter
	if maxIter <= 0 {
		maxIter = 300
	}

	iter := 0
	for iter < maxIter {
		iter++
		for i, p := range points {
			labels[i] = nearest(p, centroids)
		}

		sums := make([][]float64, km.K)
		counts := make([]int, km.K)
		for k := range sums {
			sums[k] = make([]float64, dim)
		}
		for i, p := range points {
			floats.Add(sums[labels[i]], p)
			counts[labels[i]]++
		}
		var shift float64
		for k := range centroids {
			if counts[k] == 0 {
				// 空簇保留原质心
				continue
			}
			floats.Scale(1/float64(counts[k]), sums[k])
			shift += sqDist(sums[k], centroids[k])
			centroids[k] = sums[k]
		}
		if shift <= km.Tol {
			break
		}
	}

	var inertia float64
	for i, p := range points {
		labels[i] = nearest(p, centroids)
		inertia += sqDist(p, centroids[labels[i]])
	}
	return &Fit{Labels: labels, Centroids: centroids, Inertia: inertia, Iter: iter}
}

// Predict 返回离 point 最近的质心下标
func (f *Fit) Predict(point []float64) int {
	return nearest(point, f.Centroids)
}

func nearest(p []float64, centroids [][]float64) int {
	best, bestD := 0, math.Inf(1)
	for k, c := range centroids {
		if d := sqDist(p, c); d < bestD {
			best, bestD = k, d
		}
	}
	return best
}

func sqDist(a, b []float64) float64 {
	d := floats.Distance(a, b, 2)
	return d * d
}

func clone(v []float64) []float64 { return append([]float64(nil), v...) }
