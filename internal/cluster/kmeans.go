// Package cluster groups search hits into sub-topics and names them.
package cluster

import (
	"math"
	"math/rand/v2"
)

// KMeansOptions configures KMeans.
type KMeansOptions struct {
	K       int
	MaxIter int
	// NInit is the number of independent k-means++ restarts; the run with the
	// lowest inertia wins.
	NInit int
	Seed  int64
}

func (o KMeansOptions) withDefaults(n int) KMeansOptions {
	if o.K <= 0 || o.K > n {
		o.K = n
	}
	if o.MaxIter <= 0 {
		o.MaxIter = 300
	}
	if o.NInit <= 0 {
		o.NInit = 10
	}
	return o
}

// KMeansResult holds the best clustering found.
type KMeansResult struct {
	Labels    []int
	Centroids [][]float64
	Inertia   float64
}

// KMeans partitions points into opts.K clusters under squared Euclidean
// distance. Points must share one dimension. Results are deterministic for a
// given seed.
func KMeans(points [][]float64, opts KMeansOptions) KMeansResult {
	n := len(points)
	if n == 0 {
		return KMeansResult{}
	}
	opts = opts.withDefaults(n)
	rng := rand.New(rand.NewPCG(uint64(opts.Seed), uint64(opts.Seed)^0x9e3779b97f4a7c15))

	best := KMeansResult{Inertia: math.Inf(1)}
	for run := 0; run < opts.NInit; run++ {
		res := lloyd(points, seedPlusPlus(points, opts.K, rng), opts.MaxIter)
		if res.Inertia < best.Inertia {
			best = res
		}
	}
	return best
}

// seedPlusPlus picks k initial centroids with k-means++ weighting.
func seedPlusPlus(points [][]float64, k int, rng *rand.Rand) [][]float64 {
	n := len(points)
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, clone(points[rng.IntN(n)]))

	dist := make([]float64, n)
	for i, p := range points {
		dist[i] = sqDist(p, centroids[0])
	}
	for len(centroids) < k {
		var total float64
		for _, d := range dist {
			total += d
		}
		next := 0
		if total == 0 {
			// all remaining points coincide with a centroid
			next = rng.IntN(n)
		} else {
			r := rng.Float64() * total
			for i, d := range dist {
				r -= d
				if r < 0 {
					next = i
					break
				}
				next = i
			}
		}
		c := clone(points[next])
		centroids = append(centroids, c)
		for i, p := range points {
			if d := sqDist(p, c); d < dist[i] {
				dist[i] = d
			}
		}
	}
	return centroids
}

func lloyd(points [][]float64, centroids [][]float64, maxIter int) KMeansResult {
	n, k := len(points), len(centroids)
	dim := len(points[0])
	labels := make([]int, n)
	for i := range labels {
		labels[i] = -1
	}

	for iter := 0; iter < maxIter; iter++ {
		changed := false
		for i, p := range points {
			l := nearest(p, centroids)
			if l != labels[i] {
				labels[i] = l
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}

		sums := make([][]float64, k)
		counts := make([]int, k)
		for c := range sums {
			sums[c] = make([]float64, dim)
		}
		for i, p := range points {
			counts[labels[i]]++
			for j, v := range p {
				sums[labels[i]][j] += v
			}
		}
		for c := range centroids {
			if counts[c] == 0 {
				far := farthest(points, labels, centroids)
				centroids[c] = clone(points[far])
				labels[far] = c
				continue
			}
			for j := range sums[c] {
				centroids[c][j] = sums[c][j] / float64(counts[c])
			}
		}
	}

	var inertia float64
	for i, p := range points {
		labels[i] = nearest(p, centroids)
		inertia += sqDist(p, centroids[labels[i]])
	}
	return KMeansResult{Labels: labels, Centroids: centroids, Inertia: inertia}
}

func nearest(p []float64, centroids [][]float64) int {
	best, bestD := 0, math.Inf(1)
	for c, centroid := range centroids {
		if d := sqDist(p, centroid); d < bestD {
			best, bestD = c, d
		}
	}
	return best
}

// farthest returns the point with the largest distance to its own centroid.
func farthest(points [][]float64, labels []int, centroids [][]float64) int {
	best, bestD := 0, -1.0
	for i, p := range points {
		if d := sqDist(p, centroids[labels[i]]); d > bestD {
			best, bestD = i, d
		}
	}
	return best
}

func sqDist(a, b []float64) float64 {
	var s float64
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return s
}

func clone(p []float64) []float64 {
	return append([]float64(nil), p...)
}
