package domain

import "context"

// EmbeddingResult carries one embedding with its token usage.
type EmbeddingResult struct {
	Embedding   []float32
	TotalTokens int
}

// Embedder produces a single embedding per call.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
	Model() string
}

// BatchEmbedder embeds many texts in one provider round-trip.
type BatchEmbedder interface {
	Embedder
	BatchEmbed(ctx context.Context, texts []string) ([][]float32, error)
}
