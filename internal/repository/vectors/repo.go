// Package vectors persists document chunks with their embeddings in the
// vector store, one FT index per collection.
package vectors

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/kailas-cloud/docrag/internal/db"
	"github.com/kailas-cloud/docrag/internal/domain"
)

// ScoredChunk is a retrieval hit: the chunk, its stored embedding and the
// cosine similarity to the query.
type ScoredChunk struct {
	Chunk  domain.Chunk
	Vector []float32
	Score  float64
}

// Repo stores and searches chunks for named collections.
type Repo struct {
	store     db.Store
	keyPrefix string
	dim       int
}

// New creates a vectors repository. dim is the embedding dimensionality
// used in every collection index schema.
func New(store db.Store, keyPrefix string, dim int) *Repo {
	return &Repo{store: store, keyPrefix: keyPrefix, dim: dim}
}

func (r *Repo) docPrefix(vectorName string) string {
	return r.keyPrefix + vectorName + ":"
}

func (r *Repo) definition(vectorName string) *db.IndexDefinition {
	return &db.IndexDefinition{
		Name:     vectorName,
		Prefixes: []string{r.docPrefix(vectorName)},
		Fields: []db.IndexField{
			{Name: "content", Type: db.IndexFieldText},
			{Name: "source", Type: db.IndexFieldTag},
			{Name: "country", Type: db.IndexFieldTag},
			{Name: "doc_type", Type: db.IndexFieldTag},
			{Name: "h2", Type: db.IndexFieldTag},
			{Name: "h3", Type: db.IndexFieldTag},
			{Name: "h4", Type: db.IndexFieldTag},
			{
				Name:           "vector",
				Type:           db.IndexFieldVector,
				VectorAlgo:     db.VectorHNSW,
				VectorDim:      r.dim,
				VectorDistance: db.DistanceCosine,
			},
		},
	}
}

// EnsureIndex creates the collection index if it does not exist yet.
func (r *Repo) EnsureIndex(ctx context.Context, vectorName string) error {
	err := r.store.CreateIndex(ctx, r.definition(vectorName))
	if err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("ensure index %s: %w", vectorName, err)
	}
	return nil
}

// Reset drops the collection index together with its documents and
// recreates it empty.
func (r *Repo) Reset(ctx context.Context, vectorName string) error {
	err := r.store.DropIndex(ctx, vectorName)
	if err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		return fmt.Errorf("drop index %s: %w", vectorName, err)
	}
	if err := r.store.CreateIndex(ctx, r.definition(vectorName)); err != nil {
		return fmt.Errorf("recreate index %s: %w", vectorName, err)
	}
	return nil
}

// AddChunks stores chunks with their embeddings. vectors must be parallel
// to chunks.
func (r *Repo) AddChunks(ctx context.Context, vectorName string, chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunks/vectors length mismatch: %d vs %d", len(chunks), len(vectors))
	}
	if len(chunks) == 0 {
		return nil
	}

	items := make([]db.HashSetItem, len(chunks))
	prefix := r.docPrefix(vectorName)
	for i, c := range chunks {
		items[i] = db.HashSetItem{
			Key: prefix + uuid.NewString(),
			Fields: map[string]string{
				"content":  c.Text,
				"source":   c.Metadata.Source,
				"country":  c.Metadata.Country,
				"doc_type": c.Metadata.DocType,
				"h2":       c.Metadata.H2,
				"h3":       c.Metadata.H3,
				"h4":       c.Metadata.H4,
				"vector":   db.VectorToBytes(vectors[i]),
			},
		}
	}

	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("add chunks to %s: %w", vectorName, err)
	}
	return nil
}

// Count returns the number of vectors in a collection. A missing index
// counts as zero.
func (r *Repo) Count(ctx context.Context, vectorName string) (int, error) {
	n, err := r.store.SearchCount(ctx, vectorName, "*")
	if err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("count %s: %w", vectorName, err)
	}
	return n, nil
}

var knnReturnFields = []string{
	"content", "source", "country", "doc_type", "h2", "h3", "h4", "vector", "__vector_score",
}

// SearchKNN returns the fetchK nearest chunks to the query vector with
// their stored embeddings. A missing index yields no hits.
func (r *Repo) SearchKNN(ctx context.Context, vectorName string, vector []float32, fetchK int) ([]ScoredChunk, error) {
	res, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    vectorName,
		Vector:       vector,
		K:            fetchK,
		ReturnFields: knnReturnFields,
	})
	if err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("knn search %s: %w", vectorName, err)
	}

	hits := make([]ScoredChunk, 0, len(res.Entries))
	for _, e := range res.Entries {
		hits = append(hits, ScoredChunk{
			Chunk: domain.Chunk{
				Text: e.Fields["content"],
				Metadata: domain.ChunkMetadata{
					Source:  e.Fields["source"],
					Country: e.Fields["country"],
					DocType: e.Fields["doc_type"],
					H2:      e.Fields["h2"],
					H3:      e.Fields["h3"],
					H4:      e.Fields["h4"],
				},
			},
			Vector: db.BytesToVector(e.Fields["vector"]),
			Score:  e.Score,
		})
	}
	return hits, nil
}
