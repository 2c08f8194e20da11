package query

import "math"

// maximalMarginalRelevance greedily picks k candidate indices balancing
// query similarity against similarity to already picked candidates:
// score = lambda*sim(query, c) - (1-lambda)*max_selected sim(c, s).
func maximalMarginalRelevance(query []float32, candidates [][]float32, lambda float64, k int) []int {
	if k <= 0 || len(candidates) == 0 {
		return nil
	}
	if k > len(candidates) {
		k = len(candidates)
	}

	querySims := make([]float64, len(candidates))
	for i, c := range candidates {
		querySims[i] = cosineSimilarity(query, c)
	}

	selected := make([]int, 0, k)
	picked := make([]bool, len(candidates))

	// maxSelSims[i] tracks the max similarity of candidate i to any
	// selected candidate, updated incrementally per pick.
	maxSelSims := make([]float64, len(candidates))

	for len(selected) < k {
		best := -1
		bestScore := math.Inf(-1)
		for i := range candidates {
			if picked[i] {
				continue
			}
			score := querySims[i]
			if len(selected) > 0 {
				score = lambda*querySims[i] - (1-lambda)*maxSelSims[i]
			}
			if score > bestScore {
				best, bestScore = i, score
			}
		}
		if best < 0 {
			break
		}
		picked[best] = true
		selected = append(selected, best)
		for i := range candidates {
			if picked[i] {
				continue
			}
			if sim := cosineSimilarity(candidates[i], candidates[best]); sim > maxSelSims[i] {
				maxSelSims[i] = sim
			}
		}
	}

	return selected
}

func cosineSimilarity(a, b []float32) float64 {
	n := min(len(a), len(b))
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
