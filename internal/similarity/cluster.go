package similarity

import "log/slog"

// Cluster groups items by complete-linkage agglomerative clustering: two
// clusters merge only while every cross-pair of their members scores at
// least threshold. The key function extracts the comparable label for an
// item (usually a normalized title).
//
// The full pairwise matrix is built up front (self-similarity = 1), then
// the pair of clusters with the highest minimum cross-pair similarity is
// merged repeatedly until no pair reaches the threshold. This is O(n²)
// per merge step and O(n³) worst case overall, which is fine at the scale
// of task lists (tens to low hundreds of items).
//
// The result is a partition: every item lands in exactly one cluster.
// Empty input yields no clusters; a single item yields one singleton.
func Cluster[T any](items []T, key func(T) string, threshold float64, cfg Config) [][]T {
	n := len(items)
	if n == 0 {
		return nil
	}
	if n == 1 {
		return [][]T{{items[0]}}
	}

	// Pairwise similarity matrix over item keys.
	keys := make([]string, n)
	for i, it := range items {
		keys[i] = key(it)
	}
	matrix := make([][]float64, n)
	for i := range matrix {
		matrix[i] = make([]float64, n)
		matrix[i][i] = 1.0
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			s := ScoreWithConfig(keys[i], keys[j], cfg)
			matrix[i][j] = s
			matrix[j][i] = s
		}
	}

	// Every item starts as its own cluster of indices.
	clusters := make([][]int, n)
	for i := range clusters {
		clusters[i] = []int{i}
	}

	merges := 0
	for len(clusters) > 1 {
		bestI, bestJ := -1, -1
		bestLink := -1.0

		for i := 0; i < len(clusters); i++ {
			for j := i + 1; j < len(clusters); j++ {
				link := completeLink(matrix, clusters[i], clusters[j])
				if link > bestLink {
					bestLink = link
					bestI, bestJ = i, j
				}
			}
		}

		if bestLink < threshold {
			break
		}

		clusters[bestI] = append(clusters[bestI], clusters[bestJ]...)
		clusters = append(clusters[:bestJ], clusters[bestJ+1:]...)
		merges++
	}

	slog.Debug("clustering finished",
		"items", n,
		"clusters", len(clusters),
		"merges", merges,
		"threshold", threshold,
	)

	result := make([][]T, len(clusters))
	for i, c := range clusters {
		group := make([]T, len(c))
		for j, idx := range c {
			group[j] = items[idx]
		}
		result[i] = group
	}
	return result
}

// completeLink returns the minimum pairwise similarity across the two
// clusters' members, the value that must clear the threshold for a merge.
func completeLink(matrix [][]float64, a, b []int) float64 {
	minSim := 1.0
	for _, i := range a {
		for _, j := range b {
			if matrix[i][j] < minSim {
				minSim = matrix[i][j]
			}
		}
	}
	return minSim
}

// AveragePairwise returns the mean similarity over all unordered pairs of
// the given labels, or 1.0 for fewer than two labels. Used for cluster
// cohesion reporting.
func AveragePairwise(labels []string, cfg Config) float64 {
	if len(labels) < 2 {
		return 1.0
	}
	var total float64
	pairs := 0
	for i := 0; i < len(labels); i++ {
		for j := i + 1; j < len(labels); j++ {
			total += ScoreWithConfig(labels[i], labels[j], cfg)
			pairs++
		}
	}
	return total / float64(pairs)
}
