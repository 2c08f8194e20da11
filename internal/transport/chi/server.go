// Package chi wires the HTTP surface: routing, request identity, the
// single error boundary and the JSON codecs.
package chi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docrag/internal/domain"
	"github.com/kailas-cloud/docrag/internal/metrics"
	"github.com/kailas-cloud/docrag/internal/registry"
	"github.com/kailas-cloud/docrag/internal/repository/corpus"
	indexuc "github.com/kailas-cloud/docrag/internal/usecase/index"
	moderationuc "github.com/kailas-cloud/docrag/internal/usecase/moderation"
	queryuc "github.com/kailas-cloud/docrag/internal/usecase/query"
	systemuc "github.com/kailas-cloud/docrag/internal/usecase/system"
)

// Server exposes the docrag HTTP API.
type Server struct {
	reg        *registry.Registry
	query      *queryuc.Service
	index      *indexuc.Service
	moderation *moderationuc.Service
	system     *systemuc.Service
	docs       *corpus.Loader
	logger     *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(
	reg *registry.Registry,
	query *queryuc.Service,
	index *indexuc.Service,
	moderation *moderationuc.Service,
	system *systemuc.Service,
	docs *corpus.Loader,
	logger *zap.Logger,
) *Server {
	return &Server{
		reg:        reg,
		query:      query,
		index:      index,
		moderation: moderation,
		system:     system,
		docs:       docs,
		logger:     logger,
	}
}

// Router builds the chi mux with the full middleware chain.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(requestIDMiddleware)
	r.Use(s.loggerMiddleware)
	r.Use(metrics.Middleware())
	r.Use(s.recoverMiddleware)
	r.Use(s.wideEventMiddleware)

	r.Post("/query", s.handleQuery)
	r.Post("/reindex", s.handleReindex)
	r.Get("/health", s.handleHealth)
	r.Get("/collections", s.handleCollections)

	r.Route("/upload-requests", func(r chi.Router) {
		r.Get("/", s.handleListUploadRequests)
		r.Post("/", s.handleCreateUploadRequest)
		r.Get("/{id}", s.handleGetUploadRequest)
		r.Post("/{id}/approve", s.handleApproveUploadRequest)
		r.Post("/{id}/reject", s.handleRejectUploadRequest)
	})

	r.Post("/admin/auth", s.handleAdminAuth)

	r.Get("/rag-docs", s.handleListDocs)
	r.Get("/rag-docs/{name}", s.handleGetDoc)

	r.Handle("/metrics", promhttp.Handler())

	s.mountStatic(r)

	return r
}

// errorResponse is the wire shape every failure is rendered to, exactly
// once, at this boundary.
type errorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Hint      string `json:"hint,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	Detail    any    `json:"detail,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders err as the wire error shape. Untyped errors become
// INTERNAL_ERROR with the cause kept server-side.
func (s *Server) writeError(w http.ResponseWriter, ctx context.Context, err error) {
	ae, ok := domain.AsAPIError(err)
	if !ok {
		ae = domain.ErrInternal(err)
	}

	requestID := requestIDFromContext(ctx)
	if ae.Status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("request_id", requestID),
			zap.String("code", ae.Code),
			zap.Error(err))
	}

	writeJSON(w, ae.Status, errorResponse{
		Code:      ae.Code,
		Message:   ae.Message,
		Hint:      ae.Hint,
		RequestID: requestID,
		Detail:    ae.Detail,
	})
}

// decodeJSON parses the request body into v; a failure is a typed
// INVALID_REQUEST so it passes the standard error boundary.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return domain.ErrInvalidRequest("Invalid request body.", err.Error())
	}
	return nil
}
