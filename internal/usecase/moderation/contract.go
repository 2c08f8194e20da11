package moderation

import (
	"context"

	"github.com/kailas-cloud/docrag/internal/domain"
	"github.com/kailas-cloud/docrag/internal/registry"
)

// Ingestor appends validated documents to a collection.
type Ingestor interface {
	Ingest(ctx context.Context, col registry.Collection, docs []domain.Document, reset bool) (domain.IngestResult, error)
}

// Store is the consumer interface over the upload-request store. All
// operations are atomic; Update runs the callback under the store lock.
type Store interface {
	ReadAll() ([]domain.UploadRequest, error)
	Append(req domain.UploadRequest) error
	Update(id string, fn func(*domain.UploadRequest) error) (domain.UploadRequest, error)
}

// RuntimeOptions supplies the moderation options read per call.
type RuntimeOptions interface {
	AdminCode() string
	AutoApprove() bool
}
