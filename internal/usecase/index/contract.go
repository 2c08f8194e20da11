package index

import (
	"context"

	"github.com/kailas-cloud/docrag/internal/domain"
)

// VectorRepo is the consumer interface over the vector store.
type VectorRepo interface {
	EnsureIndex(ctx context.Context, vectorName string) error
	Reset(ctx context.Context, vectorName string) error
	AddChunks(ctx context.Context, vectorName string, chunks []domain.Chunk, vectors [][]float32) error
	Count(ctx context.Context, vectorName string) (int, error)
}

// Embedder embeds chunk texts in batches.
type Embedder interface {
	BatchEmbed(ctx context.Context, texts []string) ([][]float32, error)
}

// DocLoader reads markdown documents from the data directory.
type DocLoader interface {
	Load(fileNames []string) ([]domain.Document, error)
}

// RuntimeOptions supplies the chunking options read per call.
type RuntimeOptions interface {
	ChunkingMode() string
	ChunkTokenEncoding() string
}
