package chi

import (
	"net/http"

	"github.com/kailas-cloud/docrag/internal/domain"
)

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.system.Health(r.Context()))
}

// handleCollections handles GET /collections.
func (s *Server) handleCollections(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.system.Collections(r.Context()))
}

type reindexRequest struct {
	Reset      *bool  `json:"reset"`
	Collection string `json:"collection"`
}

// handleReindex handles POST /reindex. Reset defaults to true.
func (s *Server) handleReindex(w http.ResponseWriter, r *http.Request) {
	req := reindexRequest{}
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			s.writeError(w, r.Context(), err)
			return
		}
	}

	reset := true
	if req.Reset != nil {
		reset = *req.Reset
	}

	key, err := s.reg.ResolveKey(req.Collection)
	if err != nil {
		s.writeError(w, r.Context(), err)
		return
	}
	if key == "" {
		key = s.reg.DefaultKey()
	}
	col, err := s.reg.Get(key)
	if err != nil {
		s.writeError(w, r.Context(), err)
		return
	}

	result, err := s.index.Reindex(r.Context(), col, reset)
	if err != nil {
		s.writeError(w, r.Context(), err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type adminAuthRequest struct {
	Code string `json:"code"`
}

// handleAdminAuth handles POST /admin/auth.
func (s *Server) handleAdminAuth(w http.ResponseWriter, r *http.Request) {
	var req adminAuthRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r.Context(), err)
		return
	}
	if err := s.moderation.VerifyAdminCode(req.Code); err != nil {
		s.writeError(w, r.Context(), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// handleListDocs handles GET /rag-docs.
func (s *Server) handleListDocs(w http.ResponseWriter, _ *http.Request) {
	docs := s.docs.ListDocs()
	writeJSON(w, http.StatusOK, map[string]any{"docs": docs})
}

// handleGetDoc handles GET /rag-docs/{name}, serving raw markdown.
func (s *Server) handleGetDoc(w http.ResponseWriter, r *http.Request) {
	name := urlParam(r, "name")
	data, err := s.docs.ReadDoc(name)
	if err != nil {
		if _, ok := domain.AsAPIError(err); !ok {
			err = domain.ErrInternal(err)
		}
		s.writeError(w, r.Context(), err)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
