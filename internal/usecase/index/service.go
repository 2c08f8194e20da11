// Package index is the gateway between document content and the vector
// store: chunking, cap enforcement, embedding and (re)indexing.
package index

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docrag/internal/chunker"
	"github.com/kailas-cloud/docrag/internal/domain"
	"github.com/kailas-cloud/docrag/internal/registry"
)

// embedBatchSize bounds a single embedding API request.
const embedBatchSize = 100

// Config holds the static indexing parameters.
type Config struct {
	ChunkSize    int
	ChunkOverlap int
	SoftCap      int
	HardCap      int
}

// Service implements indexing operations over one vector repo.
type Service struct {
	repo     VectorRepo
	embedder Embedder
	loader   DocLoader
	runtime  RuntimeOptions
	cfg      Config
	logger   *zap.Logger
}

// New creates the index service.
func New(
	repo VectorRepo,
	embedder Embedder,
	loader DocLoader,
	runtime RuntimeOptions,
	cfg Config,
	logger *zap.Logger,
) *Service {
	if cfg.SoftCap <= 0 {
		cfg.SoftCap = domain.DefaultSoftCap
	}
	if cfg.HardCap <= 0 {
		cfg.HardCap = domain.DefaultHardCap
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = chunker.DefaultChunkSize
	}
	if cfg.ChunkOverlap <= 0 {
		cfg.ChunkOverlap = chunker.DefaultChunkOverlap
	}
	return &Service{
		repo:     repo,
		embedder: embedder,
		loader:   loader,
		runtime:  runtime,
		cfg:      cfg,
		logger:   logger,
	}
}

// VectorCount returns the vector count of a collection, zero on store
// trouble so listings keep working.
func (s *Service) VectorCount(ctx context.Context, col registry.Collection) int {
	n, err := s.repo.Count(ctx, col.VectorName)
	if err != nil {
		s.logger.Warn("vector count failed",
			zap.String("collection", col.VectorName), zap.Error(err))
		return 0
	}
	return n
}

// CapStatus computes the cap usage for a vector count.
func (s *Service) CapStatus(vectors int) domain.CapStatus {
	return domain.ComputeCapStatus(vectors, s.cfg.SoftCap, s.cfg.HardCap)
}

func (s *Service) splitter() (*chunker.Splitter, error) {
	sp, err := chunker.NewSplitter(chunker.Params{
		Mode:          s.runtime.ChunkingMode(),
		TokenEncoding: s.runtime.ChunkTokenEncoding(),
		ChunkSize:     s.cfg.ChunkSize,
		ChunkOverlap:  s.cfg.ChunkOverlap,
	})
	if err != nil {
		return nil, domain.ErrInternal(fmt.Errorf("build splitter: %w", err))
	}
	return sp, nil
}

// Ingest chunks, embeds and stores documents in the collection. The hard
// cap is checked against the projected count before anything is written.
func (s *Service) Ingest(
	ctx context.Context, col registry.Collection, docs []domain.Document, reset bool,
) (domain.IngestResult, error) {
	sp, err := s.splitter()
	if err != nil {
		return domain.IngestResult{}, err
	}
	chunks := sp.Split(docs)

	current, err := s.repo.Count(ctx, col.VectorName)
	if err != nil {
		return domain.IngestResult{}, domain.ErrInternal(fmt.Errorf("count vectors: %w", err))
	}

	projected := len(chunks)
	if !reset {
		projected += current
	}
	if projected > s.cfg.HardCap {
		return domain.IngestResult{}, domain.ErrCapExceeded(
			"Split the collection or clear existing data and retry.").WithDetail(map[string]any{
			"collection":        col.VectorName,
			"collection_key":    col.Key,
			"projected_vectors": projected,
			"hard_cap":          s.cfg.HardCap,
		})
	}

	if reset {
		if err := s.repo.Reset(ctx, col.VectorName); err != nil {
			return domain.IngestResult{}, domain.ErrInternal(err)
		}
	} else if err := s.repo.EnsureIndex(ctx, col.VectorName); err != nil {
		return domain.IngestResult{}, domain.ErrInternal(err)
	}

	if len(chunks) > 0 {
		vectors, err := s.embedChunks(ctx, chunks)
		if err != nil {
			return domain.IngestResult{}, domain.ErrInternal(err)
		}
		if err := s.repo.AddChunks(ctx, col.VectorName, chunks, vectors); err != nil {
			return domain.IngestResult{}, domain.ErrInternal(err)
		}
	}

	vectors, err := s.repo.Count(ctx, col.VectorName)
	if err != nil {
		return domain.IngestResult{}, domain.ErrInternal(fmt.Errorf("count vectors: %w", err))
	}

	s.logger.Info("ingest complete",
		zap.String("collection", col.VectorName),
		zap.Int("chunks_added", len(chunks)),
		zap.Int("vectors", vectors),
		zap.Bool("reset", reset))

	return domain.IngestResult{
		ChunksAdded:   len(chunks),
		Vectors:       vectors,
		Cap:           s.CapStatus(vectors),
		Collection:    col.VectorName,
		CollectionKey: col.Key,
		Chunking:      sp.Params().Info(),
	}, nil
}

func (s *Service) embedChunks(ctx context.Context, chunks []domain.Chunk) ([][]float32, error) {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += embedBatchSize {
		end := min(start+embedBatchSize, len(texts))
		batch, err := s.embedder.BatchEmbed(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embed chunks [%d:%d]: %w", start, end, err)
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

// Reindex loads the collection's source files, validates them and ingests
// the usable ones. With no usable document the index is left untouched.
func (s *Service) Reindex(
	ctx context.Context, col registry.Collection, reset bool,
) (domain.ReindexResult, error) {
	docs, err := s.loader.Load(col.FileNames)
	if err != nil {
		return domain.ReindexResult{}, domain.ErrInternal(err)
	}
	if len(docs) == 0 {
		return domain.ReindexResult{}, domain.ErrInvalidRequest(
			"No markdown files found for the collection.",
			"Check the data directory and the collection file list.")
	}

	reports := chunker.ValidateDocuments(docs)
	summary := chunker.Summarize(reports)

	usable := make([]domain.Document, 0, len(docs))
	for i, doc := range docs {
		if reports[i].Usable {
			usable = append(usable, doc)
		}
	}

	if len(usable) == 0 {
		return domain.ReindexResult{}, domain.ErrInvalidRequest(
			"No usable markdown files after validation.",
			"Fix the reported validation reasons and retry.").
			WithDetail(map[string]any{"validation": summary})
	}

	ingest, err := s.Ingest(ctx, col, usable, reset)
	if err != nil {
		return domain.ReindexResult{}, err
	}

	return domain.ReindexResult{
		Docs:          len(usable),
		DocsTotal:     len(docs),
		Chunks:        ingest.ChunksAdded,
		Vectors:       ingest.Vectors,
		Collection:    col.VectorName,
		CollectionKey: col.Key,
		Cap:           ingest.Cap,
		Chunking:      ingest.Chunking,
		Validation:    summary,
	}, nil
}
