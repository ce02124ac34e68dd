package extract

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// NoiseLabel marks vectors that no cluster claimed. Noise candidates are
// kept as singleton entities at a lower base confidence, not discarded.
const NoiseLabel = -1

// Clusterer assigns a cluster label to every vector. Labels are
// non-negative cluster ids or NoiseLabel. The assignment must be
// deterministic given the input order.
type Clusterer interface {
	Cluster(vectors [][]float32) []int
}

// densityClusterer is a DBSCAN-style density clusterer over Euclidean
// distance. Points with at least minClusterSize neighbors within epsilon
// form clusters; everything else is noise.
type densityClusterer struct {
	epsilon        float64
	minClusterSize int
}

// NewDensityClusterer creates the primary clusterer.
func NewDensityClusterer(epsilon float64, minClusterSize int) Clusterer {
	return &densityClusterer{epsilon: epsilon, minClusterSize: minClusterSize}
}

func (c *densityClusterer) Cluster(vectors [][]float32) []int {
	n := len(vectors)
	labels := make([]int, n)
	for i := range labels {
		labels[i] = NoiseLabel
	}
	if n == 0 {
		return labels
	}

	points := make([][]float64, n)
	for i, v := range vectors {
		points[i] = toFloat64(v)
	}

	visited := make([]bool, n)
	clusterID := 0

	for i := 0; i < n; i++ {
		if visited[i] {
			continue
		}
		visited[i] = true

		neighbors := c.regionQuery(points, i)
		if len(neighbors) < c.minClusterSize {
			continue
		}

		labels[i] = clusterID
		// Expand the cluster breadth-first over density-reachable points.
		for q := 0; q < len(neighbors); q++ {
			j := neighbors[q]
			if !visited[j] {
				visited[j] = true
				reachable := c.regionQuery(points, j)
				if len(reachable) >= c.minClusterSize {
					neighbors = append(neighbors, reachable...)
				}
			}
			if labels[j] == NoiseLabel {
				labels[j] = clusterID
			}
		}
		clusterID++
	}

	return labels
}

// regionQuery returns the indices within epsilon of point i, including i
// itself.
func (c *densityClusterer) regionQuery(points [][]float64, i int) []int {
	var neighbors []int
	for j := range points {
		if floats.Distance(points[i], points[j], 2) <= c.epsilon {
			neighbors = append(neighbors, j)
		}
	}
	return neighbors
}

// thresholdClusterer is the fallback: pairwise cosine similarity with
// union-by-first-match. O(n²) but dependency-free beyond basic math, and it
// preserves the same output contract.
type thresholdClusterer struct {
	threshold float64
}

// NewThresholdClusterer creates the fallback clusterer.
func NewThresholdClusterer(threshold float64) Clusterer {
	return &thresholdClusterer{threshold: threshold}
}

func (c *thresholdClusterer) Cluster(vectors [][]float32) []int {
	n := len(vectors)
	labels := make([]int, n)
	for i := range labels {
		labels[i] = NoiseLabel
	}

	clusterID := 0
	for i := 0; i < n; i++ {
		if labels[i] != NoiseLabel {
			continue
		}
		members := []int{i}
		for j := i + 1; j < n; j++ {
			if labels[j] != NoiseLabel {
				continue
			}
			if CosineSimilarity(vectors[i], vectors[j]) >= c.threshold {
				members = append(members, j)
			}
		}
		if len(members) < 2 {
			continue
		}
		for _, m := range members {
			labels[m] = clusterID
		}
		clusterID++
	}

	return labels
}

// CosineSimilarity returns the cosine of the angle between two vectors, 0
// when either has zero magnitude.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0.0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0.0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}
