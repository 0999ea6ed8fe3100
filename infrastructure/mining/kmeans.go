package mining

import (
	"math"
	"sort"
)

// cluster is one k-means cluster over 1-D hour-of-day values.
type cluster struct {
	centroid float64
	points   []float64
}

// spread returns the mean absolute deviation from the centroid.
func (c cluster) spread() float64 {
	if len(c.points) == 0 {
		return 0
	}
	var sum float64
	for _, p := range c.points {
		sum += math.Abs(p - c.centroid)
	}
	return sum / float64(len(c.points))
}

// kmeans1d clusters 1-D values into at most k clusters. Centroids are
// initialized at quantiles, so the result is deterministic for a given
// input. Clusters whose centroids converge within mergeDistance are merged:
// near-identical centroids describe the same habit and splitting them would
// dilute cluster sizes arbitrarily.
func kmeans1d(values []float64, k int, iterations int, mergeDistance float64) []cluster {
	if len(values) == 0 || k <= 0 {
		return nil
	}
	if k > len(values) {
		k = len(values)
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	// Quantile initialization.
	centroids := make([]float64, k)
	for i := range centroids {
		idx := (i*2 + 1) * len(sorted) / (k * 2)
		if idx >= len(sorted) {
			idx = len(sorted) - 1
		}
		centroids[i] = sorted[idx]
	}

	assignment := make([]int, len(values))
	for iter := 0; iter < iterations; iter++ {
		changed := false

		for i, v := range values {
			best := 0
			bestDist := math.Abs(v - centroids[0])
			for j := 1; j < k; j++ {
				if d := math.Abs(v - centroids[j]); d < bestDist {
					best = j
					bestDist = d
				}
			}
			if assignment[i] != best {
				assignment[i] = best
				changed = true
			}
		}

		sums := make([]float64, k)
		counts := make([]int, k)
		for i, v := range values {
			sums[assignment[i]] += v
			counts[assignment[i]]++
		}
		for j := 0; j < k; j++ {
			if counts[j] > 0 {
				centroids[j] = sums[j] / float64(counts[j])
			}
		}

		if !changed && iter > 0 {
			break
		}
	}

	clusters := make([]cluster, k)
	for j := 0; j < k; j++ {
		clusters[j] = cluster{centroid: centroids[j]}
	}
	for i, v := range values {
		clusters[assignment[i]].points = append(clusters[assignment[i]].points, v)
	}

	return mergeClusters(clusters, mergeDistance)
}

// mergeClusters folds together non-empty clusters with near-equal centroids.
func mergeClusters(clusters []cluster, mergeDistance float64) []cluster {
	var nonEmpty []cluster
	for _, c := range clusters {
		if len(c.points) > 0 {
			nonEmpty = append(nonEmpty, c)
		}
	}
	sort.Slice(nonEmpty, func(i, j int) bool {
		return nonEmpty[i].centroid < nonEmpty[j].centroid
	})

	var merged []cluster
	for _, c := range nonEmpty {
		if n := len(merged); n > 0 && c.centroid-merged[n-1].centroid < mergeDistance {
			prev := &merged[n-1]
			total := len(prev.points) + len(c.points)
			prev.centroid = (prev.centroid*float64(len(prev.points)) + c.centroid*float64(len(c.points))) / float64(total)
			prev.points = append(prev.points, c.points...)
			continue
		}
		merged = append(merged, c)
	}
	return merged
}
