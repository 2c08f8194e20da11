package query

import (
	"math"
	"testing"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0}, []float32{1, 0}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cosineSimilarity(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("cosineSimilarity = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMMR_PicksMostSimilarFirst(t *testing.T) {
	query := []float32{1, 0}
	candidates := [][]float32{
		{0, 1},           // orthogonal
		{1, 0},           // identical
		{0.7071, 0.7071}, // diagonal
	}

	indices := maximalMarginalRelevance(query, candidates, 0.3, 1)
	if len(indices) != 1 || indices[0] != 1 {
		t.Errorf("expected [1], got %v", indices)
	}
}

func TestMMR_PenalizesRedundancy(t *testing.T) {
	query := []float32{1, 0}
	candidates := [][]float32{
		{1, 0},       // best match
		{0.999, 0.1}, // near duplicate of the first
		{0.5, 0.5},   // diverse, still relevant
	}

	indices := maximalMarginalRelevance(query, candidates, 0.3, 2)
	if len(indices) != 2 {
		t.Fatalf("expected 2 picks, got %v", indices)
	}
	if indices[0] != 0 {
		t.Errorf("first pick should be the best match, got %v", indices)
	}
	if indices[1] != 2 {
		t.Errorf("second pick should favor diversity over the near duplicate, got %v", indices)
	}
}

func TestMMR_KClampedToCandidates(t *testing.T) {
	query := []float32{1, 0}
	candidates := [][]float32{{1, 0}, {0, 1}}

	indices := maximalMarginalRelevance(query, candidates, 0.3, 10)
	if len(indices) != 2 {
		t.Errorf("expected all candidates, got %v", indices)
	}
}

func TestMMR_EmptyAndZeroK(t *testing.T) {
	if got := maximalMarginalRelevance([]float32{1}, nil, 0.3, 3); got != nil {
		t.Errorf("expected nil for no candidates, got %v", got)
	}
	if got := maximalMarginalRelevance([]float32{1}, [][]float32{{1}}, 0.3, 0); got != nil {
		t.Errorf("expected nil for k=0, got %v", got)
	}
}

func TestMMR_NoDuplicateIndices(t *testing.T) {
	query := []float32{1, 0, 0}
	candidates := [][]float32{
		{1, 0, 0}, {0.9, 0.1, 0}, {0, 1, 0}, {0, 0, 1}, {0.5, 0.5, 0},
	}

	indices := maximalMarginalRelevance(query, candidates, 0.3, 5)
	seen := make(map[int]bool)
	for _, i := range indices {
		if seen[i] {
			t.Fatalf("index %d picked twice: %v", i, indices)
		}
		seen[i] = true
	}
	if len(indices) != 5 {
		t.Errorf("expected 5 picks, got %v", indices)
	}
}
