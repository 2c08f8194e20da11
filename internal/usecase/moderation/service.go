// Package moderation owns the upload-request lifecycle: submission,
// validation, the pending/approved/rejected state machine and the
// admin-gated transitions.
package moderation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docrag/internal/chunker"
	"github.com/kailas-cloud/docrag/internal/domain"
	"github.com/kailas-cloud/docrag/internal/registry"
	"github.com/kailas-cloud/docrag/internal/repository/uploads"
)

const autoRejectReason = "auto-approve enabled but validation failed"

// Service implements the upload moderation workflow.
type Service struct {
	reg      *registry.Registry
	store    Store
	ingestor Ingestor
	runtime  RuntimeOptions
	logger   *zap.Logger
	now      func() time.Time
}

// New creates the moderation service.
func New(
	reg *registry.Registry,
	store Store,
	ingestor Ingestor,
	runtime RuntimeOptions,
	logger *zap.Logger,
) *Service {
	return &Service{
		reg:      reg,
		store:    store,
		ingestor: ingestor,
		runtime:  runtime,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC().Truncate(time.Second) },
	}
}

// CreateInput is one document submission.
type CreateInput struct {
	Content    string
	SourceName string
	Collection string
	Country    string
	DocType    string
}

// CreateOutput reports the stored request and whether auto-approve ran.
type CreateOutput struct {
	AutoApprove bool
	Request     domain.UploadRequest
}

// Create validates and stores a submission as pending. With auto-approve
// enabled the request is settled immediately: rejected when validation
// failed, otherwise ingested and approved.
func (s *Service) Create(ctx context.Context, in CreateInput) (CreateOutput, error) {
	if strings.TrimSpace(in.Content) == "" {
		return CreateOutput{}, domain.ErrInvalidRequest("content is required.", "")
	}

	key, err := s.reg.ResolveKey(in.Collection)
	if err != nil {
		return CreateOutput{}, err
	}
	if key == "" {
		key = s.reg.DefaultKey()
	}
	col, err := s.reg.Get(key)
	if err != nil {
		return CreateOutput{}, err
	}

	seed := in.SourceName
	if strings.TrimSpace(seed) == "" {
		seed = fmt.Sprintf("upload_%d", s.now().Unix())
	}
	sourceName, err := SanitizeSourceName(seed)
	if err != nil {
		return CreateOutput{}, domain.ErrInvalidRequest("source_name is required.", "")
	}

	meta := domain.ChunkMetadata{
		Source:  sourceName,
		Country: valueOr(in.Country, col.Country),
		DocType: valueOr(in.DocType, col.DocType),
	}
	validation := chunker.ValidateMarkdown(sourceName, in.Content, meta)

	now := s.now()
	req := domain.UploadRequest{
		ID:            uuid.NewString(),
		Status:        domain.StatusPending,
		CollectionKey: key,
		Collection:    col.VectorName,
		SourceName:    sourceName,
		Content:       in.Content,
		Metadata:      meta,
		Validation:    validation,
		Usable:        validation.Usable,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	autoApprove := s.runtime.AutoApprove()
	if autoApprove {
		if !req.Usable {
			if err := req.MarkRejected(now, autoRejectReason); err != nil {
				return CreateOutput{}, domain.ErrInternal(err)
			}
		} else {
			ingest, err := s.ingestor.Ingest(ctx, col,
				[]domain.Document{{Content: in.Content, Metadata: meta}}, false)
			if err != nil {
				return CreateOutput{}, err
			}
			if err := req.MarkApproved(now, &ingest); err != nil {
				return CreateOutput{}, domain.ErrInternal(err)
			}
		}
	}

	if err := s.store.Append(req); err != nil {
		return CreateOutput{}, domain.ErrInternal(err)
	}

	s.logger.Info("upload request created",
		zap.String("id", req.ID),
		zap.String("collection", req.Collection),
		zap.String("status", string(req.Status)),
		zap.Bool("auto_approve", autoApprove))

	return CreateOutput{AutoApprove: autoApprove, Request: req}, nil
}

// Approve ingests a pending, usable request and marks it approved. An
// optional collection override redirects the ingest target.
func (s *Service) Approve(ctx context.Context, id, code, collection string) (domain.UploadRequest, error) {
	if err := s.VerifyAdminCode(code); err != nil {
		return domain.UploadRequest{}, err
	}

	updated, err := s.store.Update(id, func(r *domain.UploadRequest) error {
		if err := r.EnsurePending(); err != nil {
			return err
		}
		if !r.Usable {
			return domain.ErrInvalidRequest(
				"Validation failed request cannot be approved. Check request.validation.reasons.", "")
		}

		target := collection
		if strings.TrimSpace(target) == "" {
			target = r.CollectionKey
		}
		key, err := s.reg.ResolveKey(target)
		if err != nil {
			return err
		}
		if key == "" {
			key = s.reg.DefaultKey()
		}
		col, err := s.reg.Get(key)
		if err != nil {
			return err
		}

		ingest, err := s.ingestor.Ingest(ctx, col,
			[]domain.Document{{Content: r.Content, Metadata: r.Metadata}}, false)
		if err != nil {
			return err
		}

		r.CollectionKey = key
		r.Collection = col.VectorName
		return r.MarkApproved(s.now(), &ingest)
	})
	if err != nil {
		return domain.UploadRequest{}, s.mapStoreErr(id, err)
	}

	s.logger.Info("upload request approved",
		zap.String("id", updated.ID), zap.String("collection", updated.Collection))
	return updated, nil
}

// Reject marks a pending request rejected with a trimmed reason.
func (s *Service) Reject(_ context.Context, id, code, reason string) (domain.UploadRequest, error) {
	if err := s.VerifyAdminCode(code); err != nil {
		return domain.UploadRequest{}, err
	}

	trimmed := strings.TrimSpace(reason)
	if trimmed == "" {
		return domain.UploadRequest{}, domain.ErrInvalidRequest("reason is required.", "")
	}

	updated, err := s.store.Update(id, func(r *domain.UploadRequest) error {
		return r.MarkRejected(s.now(), trimmed)
	})
	if err != nil {
		return domain.UploadRequest{}, s.mapStoreErr(id, err)
	}

	s.logger.Info("upload request rejected",
		zap.String("id", updated.ID), zap.String("reason", trimmed))
	return updated, nil
}

// ListFilter narrows the request listing. All set filters are ANDed.
type ListFilter struct {
	Status string
	Reason string
	Search string
}

// List returns matching requests, newest first.
func (s *Service) List(_ context.Context, f ListFilter) ([]domain.UploadRequest, error) {
	items, err := s.store.ReadAll()
	if err != nil {
		return nil, domain.ErrInternal(err)
	}

	filtered := make([]domain.UploadRequest, 0, len(items))
	status := strings.ToLower(strings.TrimSpace(f.Status))
	reason := strings.ToLower(strings.TrimSpace(f.Reason))
	search := strings.ToLower(strings.TrimSpace(f.Search))

	for _, item := range items {
		if status != "" && strings.ToLower(string(item.Status)) != status {
			continue
		}
		if reason != "" && !strings.Contains(strings.ToLower(item.RejectedReason), reason) {
			continue
		}
		if search != "" && !matchesSearch(item, search) {
			continue
		}
		filtered = append(filtered, item)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].CreatedAt.After(filtered[j].CreatedAt)
	})
	return filtered, nil
}

// Get returns one request by id.
func (s *Service) Get(_ context.Context, id string) (domain.UploadRequest, error) {
	items, err := s.store.ReadAll()
	if err != nil {
		return domain.UploadRequest{}, domain.ErrInternal(err)
	}
	for _, item := range items {
		if item.ID == id {
			return item, nil
		}
	}
	return domain.UploadRequest{}, domain.ErrNotFound(fmt.Sprintf("Upload request not found: %s", id))
}

// AutoApprove reports whether the auto-approve policy is currently on.
func (s *Service) AutoApprove() bool {
	return s.runtime.AutoApprove()
}

// VerifyAdminCode checks the moderation code.
func (s *Service) VerifyAdminCode(code string) error {
	if strings.TrimSpace(code) != s.runtime.AdminCode() {
		return domain.ErrUnauthorized()
	}
	return nil
}

func (s *Service) mapStoreErr(id string, err error) error {
	if errors.Is(err, uploads.ErrNotFound) {
		return domain.ErrNotFound(fmt.Sprintf("Upload request not found: %s", id))
	}
	if _, ok := domain.AsAPIError(err); ok {
		return err
	}
	return domain.ErrInternal(err)
}

func matchesSearch(item domain.UploadRequest, query string) bool {
	for _, field := range []string{
		item.ID, item.SourceName, item.CollectionKey, string(item.Status), item.RejectedReason,
	} {
		if strings.Contains(strings.ToLower(field), query) {
			return true
		}
	}
	return false
}

func valueOr(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}

// SanitizeSourceName maps a user-supplied name to a safe markdown file
// name: letters, digits, "_", "-" and "." survive, everything else
// becomes "_", and a ".md" suffix is appended when missing.
func SanitizeSourceName(name string) (string, error) {
	value := strings.TrimSpace(name)
	if value == "" {
		return "", errors.New("source_name is empty")
	}

	var b strings.Builder
	for _, r := range value {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' || r == '.' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}

	safe := b.String()
	if !strings.HasSuffix(strings.ToLower(safe), ".md") {
		safe += ".md"
	}
	return safe, nil
}
