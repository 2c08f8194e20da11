package query

import (
	"context"

	"github.com/kailas-cloud/docrag/internal/domain"
	"github.com/kailas-cloud/docrag/internal/repository/vectors"
)

// Searcher is the consumer interface over the vector store.
type Searcher interface {
	Count(ctx context.Context, vectorName string) (int, error)
	SearchKNN(ctx context.Context, vectorName string, vector []float32, fetchK int) ([]vectors.ScoredChunk, error)
}

// Embedder embeds the question text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Chatter answers a single-turn prompt.
type Chatter interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Provider() string
	ModelName() string
}

// ChatFactory builds a chat client for the requested provider. An
// unsupported provider yields a typed INVALID_PROVIDER error.
type ChatFactory func(provider, model, apiKey, baseURL string) (Chatter, error)

// RuntimeOptions supplies per-query options read from the environment.
type RuntimeOptions interface {
	QueryTimeoutSeconds() int
	MaxContextChars() int
}
