package chi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kailas-cloud/docrag/internal/domain"
	moderationuc "github.com/kailas-cloud/docrag/internal/usecase/moderation"
)

func urlParam(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}

type createUploadRequest struct {
	Content    string `json:"content"`
	SourceName string `json:"source_name"`
	Collection string `json:"collection"`
	Country    string `json:"country"`
	DocType    string `json:"doc_type"`
}

// handleCreateUploadRequest handles POST /upload-requests.
func (s *Server) handleCreateUploadRequest(w http.ResponseWriter, r *http.Request) {
	var req createUploadRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r.Context(), err)
		return
	}

	out, err := s.moderation.Create(r.Context(), moderationuc.CreateInput{
		Content:    req.Content,
		SourceName: req.SourceName,
		Collection: req.Collection,
		Country:    req.Country,
		DocType:    req.DocType,
	})
	if err != nil {
		s.writeError(w, r.Context(), err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"auto_approve": out.AutoApprove,
		"request":      out.Request,
	})
}

// handleListUploadRequests handles GET /upload-requests with status,
// reason and q filters plus status counts over the whole store.
func (s *Server) handleListUploadRequests(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if v := strings.ToLower(strings.TrimSpace(status)); v != "" && !domain.RequestStatus(v).Valid() {
		s.writeError(w, r.Context(), domain.ErrInvalidRequest(
			"Unsupported status.",
			fmt.Sprintf("Use one of: %s, %s, %s.",
				domain.StatusApproved, domain.StatusPending, domain.StatusRejected)))
		return
	}

	items, err := s.moderation.List(r.Context(), moderationuc.ListFilter{
		Status: status,
		Reason: r.URL.Query().Get("reason"),
		Search: r.URL.Query().Get("q"),
	})
	if err != nil {
		s.writeError(w, r.Context(), err)
		return
	}

	all, err := s.moderation.List(r.Context(), moderationuc.ListFilter{})
	if err != nil {
		s.writeError(w, r.Context(), err)
		return
	}
	counts := map[string]int{"pending": 0, "approved": 0, "rejected": 0}
	for _, item := range all {
		if _, ok := counts[string(item.Status)]; ok {
			counts[string(item.Status)]++
		}
	}

	if items == nil {
		items = []domain.UploadRequest{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"auto_approve": s.moderation.AutoApprove(),
		"counts":       counts,
		"requests":     items,
	})
}

// handleGetUploadRequest handles GET /upload-requests/{id}.
func (s *Server) handleGetUploadRequest(w http.ResponseWriter, r *http.Request) {
	req, err := s.moderation.Get(r.Context(), urlParam(r, "id"))
	if err != nil {
		s.writeError(w, r.Context(), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"request": req})
}

type approveActionRequest struct {
	Code       string `json:"code"`
	Collection string `json:"collection"`
}

// handleApproveUploadRequest handles POST /upload-requests/{id}/approve.
func (s *Server) handleApproveUploadRequest(w http.ResponseWriter, r *http.Request) {
	var action approveActionRequest
	if err := decodeJSON(r, &action); err != nil {
		s.writeError(w, r.Context(), err)
		return
	}

	req, err := s.moderation.Approve(r.Context(), urlParam(r, "id"), action.Code, action.Collection)
	if err != nil {
		s.writeError(w, r.Context(), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"request": req})
}

type rejectActionRequest struct {
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

// handleRejectUploadRequest handles POST /upload-requests/{id}/reject.
func (s *Server) handleRejectUploadRequest(w http.ResponseWriter, r *http.Request) {
	var action rejectActionRequest
	if err := decodeJSON(r, &action); err != nil {
		s.writeError(w, r.Context(), err)
		return
	}

	req, err := s.moderation.Reject(r.Context(), urlParam(r, "id"), action.Code, action.Reason)
	if err != nil {
		s.writeError(w, r.Context(), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"request": req})
}
