// Package system reports service health and the collection catalog with
// live vector counts.
package system

import (
	"context"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docrag/internal/domain"
	"github.com/kailas-cloud/docrag/internal/registry"
	"github.com/kailas-cloud/docrag/internal/usecase/moderation"
)

// IndexInfo exposes vector counts and cap math.
type IndexInfo interface {
	VectorCount(ctx context.Context, col registry.Collection) int
	CapStatus(vectors int) domain.CapStatus
}

// UploadLister exposes the moderation queue for the pending count.
type UploadLister interface {
	List(ctx context.Context, f moderation.ListFilter) ([]domain.UploadRequest, error)
}

// RuntimeOptions supplies the runtime knobs echoed by health.
type RuntimeOptions interface {
	AutoApprove() bool
	ChunkingMode() string
	QueryTimeoutSeconds() int
	MaxContextChars() int
}

// HealthReport is the /health payload.
type HealthReport struct {
	Status              string `json:"status"`
	CollectionKey       string `json:"collection_key"`
	Collection          string `json:"collection"`
	StoreDir            string `json:"store_dir"`
	Vectors             int    `json:"vectors"`
	AutoApprove         bool   `json:"auto_approve"`
	PendingRequests     int    `json:"pending_requests"`
	ChunkingMode        string `json:"chunking_mode"`
	QueryTimeoutSeconds int    `json:"query_timeout_seconds"`
	MaxContextChars     *int   `json:"max_context_chars"`
}

// CollectionStatus is one entry of the /collections payload.
type CollectionStatus struct {
	Key       string   `json:"key"`
	Name      string   `json:"name"`
	Label     string   `json:"label"`
	FileNames []string `json:"file_names"`
	Vectors   int      `json:"vectors"`
	domain.CapStatus
}

// Catalog is the /collections payload.
type Catalog struct {
	DefaultCollectionKey string             `json:"default_collection_key"`
	AutoApprove          bool               `json:"auto_approve"`
	Collections          []CollectionStatus `json:"collections"`
}

// Service implements the system views.
type Service struct {
	reg      *registry.Registry
	index    IndexInfo
	uploads  UploadLister
	runtime  RuntimeOptions
	storeDir string
	logger   *zap.Logger
}

// New creates the system service.
func New(
	reg *registry.Registry,
	index IndexInfo,
	uploads UploadLister,
	runtime RuntimeOptions,
	storeDir string,
	logger *zap.Logger,
) *Service {
	return &Service{
		reg:      reg,
		index:    index,
		uploads:  uploads,
		runtime:  runtime,
		storeDir: storeDir,
		logger:   logger,
	}
}

// Health reports the default collection state and runtime options.
func (s *Service) Health(ctx context.Context) HealthReport {
	report := HealthReport{
		Status:              "ok",
		CollectionKey:       s.reg.DefaultKey(),
		StoreDir:            s.storeDir,
		AutoApprove:         s.runtime.AutoApprove(),
		ChunkingMode:        s.runtime.ChunkingMode(),
		QueryTimeoutSeconds: s.runtime.QueryTimeoutSeconds(),
	}

	if col, err := s.reg.Get(s.reg.DefaultKey()); err == nil {
		report.Collection = col.VectorName
		report.Vectors = s.index.VectorCount(ctx, col)
	}

	if pending, err := s.uploads.List(ctx, moderation.ListFilter{
		Status: string(domain.StatusPending),
	}); err == nil {
		report.PendingRequests = len(pending)
	} else {
		s.logger.Warn("pending request count failed", zap.Error(err))
	}

	if budget := s.runtime.MaxContextChars(); budget > 0 {
		report.MaxContextChars = &budget
	}

	return report
}

// Collections lists every collection with vectors and cap usage.
func (s *Service) Collections(ctx context.Context) Catalog {
	items := make([]CollectionStatus, 0, len(s.reg.All()))
	for _, col := range s.reg.All() {
		vectors := s.index.VectorCount(ctx, col)
		items = append(items, CollectionStatus{
			Key:       col.Key,
			Name:      col.VectorName,
			Label:     col.Label,
			FileNames: col.FileNames,
			Vectors:   vectors,
			CapStatus: s.index.CapStatus(vectors),
		})
	}
	return Catalog{
		DefaultCollectionKey: s.reg.DefaultKey(),
		AutoApprove:          s.runtime.AutoApprove(),
		Collections:          items,
	}
}
