package domain

import (
	"fmt"
	"time"
)

// RequestStatus is the closed set of upload-request states.
type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusApproved RequestStatus = "approved"
	StatusRejected RequestStatus = "rejected"
)

// Valid reports whether s is a known status value.
func (s RequestStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// ChunkingInfo echoes the splitter configuration used for an ingest.
type ChunkingInfo struct {
	Mode          string `json:"mode"`
	TokenEncoding string `json:"token_encoding"`
	ChunkSize     int    `json:"chunk_size"`
	ChunkOverlap  int    `json:"chunk_overlap"`
}

// IngestResult reports a completed ingestion into one collection.
type IngestResult struct {
	ChunksAdded   int          `json:"chunks_added"`
	Vectors       int          `json:"vectors"`
	Cap           CapStatus    `json:"cap"`
	Collection    string       `json:"collection"`
	CollectionKey string       `json:"collection_key"`
	Chunking      ChunkingInfo `json:"chunking"`
}

// ReindexResult reports a full reindex of a collection's backing files.
type ReindexResult struct {
	Docs          int               `json:"docs"`
	DocsTotal     int               `json:"docs_total"`
	Chunks        int               `json:"chunks"`
	Vectors       int               `json:"vectors"`
	Collection    string            `json:"collection"`
	CollectionKey string            `json:"collection_key"`
	Cap           CapStatus         `json:"cap"`
	Chunking      ChunkingInfo      `json:"chunking"`
	Validation    ValidationSummary `json:"validation"`
}

// UploadRequest is a durable, human-reviewable document submission.
// Transitions happen only through MarkApproved/MarkRejected; both require
// pending status, making approved-and-rejected hybrids unrepresentable.
type UploadRequest struct {
	ID             string           `json:"id"`
	Status         RequestStatus    `json:"status"`
	CollectionKey  string           `json:"collection_key"`
	Collection     string           `json:"collection"`
	SourceName     string           `json:"source_name"`
	Content        string           `json:"content"`
	Metadata       ChunkMetadata    `json:"metadata"`
	Validation     ValidationReport `json:"validation"`
	Usable         bool             `json:"usable"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
	ApprovedAt     *time.Time       `json:"approved_at"`
	RejectedAt     *time.Time       `json:"rejected_at"`
	RejectedReason string           `json:"rejected_reason,omitempty"`
	Ingest         *IngestResult    `json:"ingest"`
}

// EnsurePending returns a typed error when the request already left the
// pending state.
func (r *UploadRequest) EnsurePending() error {
	if r.Status != StatusPending {
		return ErrInvalidRequest(
			fmt.Sprintf("Request is not pending. status=%s", r.Status), "")
	}
	return nil
}

// MarkApproved transitions pending → approved, attaching the ingest
// result and clearing any rejection fields.
func (r *UploadRequest) MarkApproved(now time.Time, ingest *IngestResult) error {
	if err := r.EnsurePending(); err != nil {
		return err
	}
	r.Status = StatusApproved
	r.ApprovedAt = &now
	r.UpdatedAt = now
	r.RejectedAt = nil
	r.RejectedReason = ""
	r.Ingest = ingest
	return nil
}

// MarkRejected transitions pending → rejected, recording the reason and
// clearing approval/ingest fields.
func (r *UploadRequest) MarkRejected(now time.Time, reason string) error {
	if err := r.EnsurePending(); err != nil {
		return err
	}
	r.Status = StatusRejected
	r.RejectedAt = &now
	r.RejectedReason = reason
	r.UpdatedAt = now
	r.ApprovedAt = nil
	r.Ingest = nil
	return nil
}
