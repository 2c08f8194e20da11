package chi

import (
	"net/http"
	"strings"

	"github.com/kailas-cloud/docrag/internal/domain"
	queryuc "github.com/kailas-cloud/docrag/internal/usecase/query"
)

type queryRequest struct {
	Query       string   `json:"query"`
	Collection  string   `json:"collection"`
	Collections []string `json:"collections"`
	LLMProvider string   `json:"llm_provider"`
	LLMModel    string   `json:"llm_model"`
	LLMAPIKey   string   `json:"llm_api_key"`
	LLMBaseURL  string   `json:"llm_base_url"`
}

type queryResponse struct {
	Answer   string `json:"answer"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// handleQuery handles POST /query.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r.Context(), err)
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		s.writeError(w, r.Context(), domain.ErrInvalidRequest("query is required.", ""))
		return
	}

	out, err := s.query.Answer(r.Context(), queryuc.Input{
		Query:       req.Query,
		Collection:  req.Collection,
		Collections: req.Collections,
		Provider:    req.LLMProvider,
		Model:       req.LLMModel,
		APIKey:      req.LLMAPIKey,
		BaseURL:     req.LLMBaseURL,
	})
	if err != nil {
		s.writeError(w, r.Context(), err)
		return
	}

	if len(out.ActiveCollections) > 0 {
		w.Header().Set("X-RAG-Collection", out.ActiveCollections[0])
		w.Header().Set("X-RAG-Collections", strings.Join(out.ActiveCollections, ","))
	}

	writeJSON(w, http.StatusOK, queryResponse{
		Answer:   out.Answer,
		Provider: out.Provider,
		Model:    out.Model,
	})
}
