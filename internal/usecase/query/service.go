// Package query answers questions over the indexed collections: routing,
// MMR retrieval, context assembly and the time-bounded LLM call.
package query

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docrag/internal/domain"
	"github.com/kailas-cloud/docrag/internal/metrics"
	"github.com/kailas-cloud/docrag/internal/registry"
	"github.com/kailas-cloud/docrag/internal/repository/vectors"
)

const promptTemplate = `You are a question answering assistant for European science history.
Answer using only the information in [Context].
If the context does not contain enough evidence, answer "The provided documents do not confirm this."

[Context]
%s

[Question]
%s

[Answer]
1) Key answer:
2) Evidence:
`

// Config holds the retrieval parameters.
type Config struct {
	K      int
	FetchK int
	Lambda float64
}

// Input is one question with optional routing and LLM overrides.
type Input struct {
	Query       string
	Collection  string
	Collections []string
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string
}

// Output is the answer with the routing decision that produced it.
type Output struct {
	Answer            string
	Provider          string
	Model             string
	Route             string
	ActiveCollections []string // vector names, in search order
}

// Service implements the query pipeline.
type Service struct {
	reg         *registry.Registry
	searcher    Searcher
	embedder    Embedder
	chatFactory ChatFactory
	runtime     RuntimeOptions
	cfg         Config
	logger      *zap.Logger
}

// New creates the query service.
func New(
	reg *registry.Registry,
	searcher Searcher,
	embedder Embedder,
	chatFactory ChatFactory,
	runtime RuntimeOptions,
	cfg Config,
	logger *zap.Logger,
) *Service {
	if cfg.K <= 0 {
		cfg.K = 3
	}
	if cfg.FetchK < cfg.K {
		cfg.FetchK = cfg.K
	}
	if cfg.Lambda <= 0 {
		cfg.Lambda = 0.3
	}
	return &Service{
		reg:         reg,
		searcher:    searcher,
		embedder:    embedder,
		chatFactory: chatFactory,
		runtime:     runtime,
		cfg:         cfg,
		logger:      logger,
	}
}

// Answer runs the full pipeline and writes the per-query outcome line.
func (s *Service) Answer(ctx context.Context, in Input) (Output, error) {
	started := time.Now()

	out, err := s.answer(ctx, in)

	code := "OK"
	if err != nil {
		if ae, ok := domain.AsAPIError(err); ok {
			code = ae.Code
		} else {
			err = domain.ErrInternal(err)
			code = domain.CodeInternalError
		}
	}

	metrics.QueryOutcomesTotal.WithLabelValues(code).Inc()
	s.logger.Info("query outcome",
		zap.String("code", code),
		zap.String("provider", out.Provider),
		zap.String("model", out.Model),
		zap.String("collection", strings.Join(out.ActiveCollections, ",")),
		zap.String("route", out.Route),
		zap.Int64("elapsed_ms", time.Since(started).Milliseconds()))

	return out, err
}

func (s *Service) answer(ctx context.Context, in Input) (Output, error) {
	out := Output{Provider: in.Provider, Model: in.Model}

	timeoutSeconds := s.runtime.QueryTimeoutSeconds()

	chat, err := s.chatFactory(in.Provider, in.Model, in.APIKey, in.BaseURL)
	if err != nil {
		return out, err
	}
	out.Provider = chat.Provider()
	out.Model = chat.ModelName()

	keys, reason, allowFallback, err := s.reg.ResolveKeysForQuery(in.Query, in.Collection, in.Collections)
	if err != nil {
		return out, err
	}
	out.Route = reason

	active := s.filterActive(ctx, keys)

	if len(active) == 0 && allowFallback && !containsKey(keys, s.reg.DefaultKey()) {
		if s.countVectors(ctx, s.reg.DefaultKey()) > 0 {
			active = []string{s.reg.DefaultKey()}
			reason += "->fallback"
			out.Route = reason
		}
	}

	if len(active) == 0 {
		return out, domain.ErrVectorstoreEmpty("collections=" + strings.Join(s.vectorNames(keys), ","))
	}

	activeNames := s.vectorNames(active)
	out.ActiveCollections = activeNames

	// The deadline covers retrieval and generation together, on a fresh
	// context so a client disconnect cannot shorten it.
	callCtx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutSeconds)*time.Second)
	defer cancel()

	type result struct {
		answer string
		err    error
	}
	done := make(chan result, 1)
	go func() {
		passages, err := s.buildContext(callCtx, in.Query, activeNames)
		if err != nil {
			done <- result{err: err}
			return
		}
		answer, err := chat.Complete(callCtx, fmt.Sprintf(promptTemplate, passages, in.Query))
		done <- result{answer: answer, err: err}
	}()

	select {
	case <-callCtx.Done():
		return out, domain.ErrLLMTimeout(timeoutSeconds)
	case res := <-done:
		if res.err != nil {
			if ae, ok := domain.AsAPIError(res.err); ok {
				return out, ae
			}
			if callCtx.Err() != nil {
				return out, domain.ErrLLMTimeout(timeoutSeconds)
			}
			return out, domain.ErrLLMConnectionFailed(
				"Check the provider/base_url/api_key settings and the model status.").WithCause(res.err)
		}
		out.Answer = res.answer
		return out, nil
	}
}

// filterActive keeps the keys whose collections hold at least one vector.
func (s *Service) filterActive(ctx context.Context, keys []string) []string {
	var active []string
	for _, key := range keys {
		if s.countVectors(ctx, key) > 0 {
			active = append(active, key)
		}
	}
	return active
}

func (s *Service) countVectors(ctx context.Context, key string) int {
	name, err := s.reg.VectorName(key)
	if err != nil {
		return 0
	}
	n, err := s.searcher.Count(ctx, name)
	if err != nil {
		s.logger.Warn("vector count failed", zap.String("collection", name), zap.Error(err))
		return 0
	}
	return n
}

func (s *Service) vectorNames(keys []string) []string {
	names := make([]string, 0, len(keys))
	for _, key := range keys {
		if name, err := s.reg.VectorName(key); err == nil {
			names = append(names, name)
		}
	}
	return names
}

// buildContext embeds the question once, retrieves per collection with
// MMR, deduplicates across collections and truncates to the budget.
func (s *Service) buildContext(ctx context.Context, question string, vectorNames []string) (string, error) {
	embedded, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return "", fmt.Errorf("embed question: %w", err)
	}

	var picked []domain.Chunk
	seen := make(map[string]struct{})

	for _, name := range vectorNames {
		hits, err := s.searcher.SearchKNN(ctx, name, embedded.Embedding, s.cfg.FetchK)
		if err != nil {
			return "", fmt.Errorf("search %s: %w", name, err)
		}
		for _, c := range s.selectMMR(embedded.Embedding, hits) {
			fp := c.Fingerprint()
			if _, dup := seen[fp]; dup {
				continue
			}
			seen[fp] = struct{}{}
			picked = append(picked, c)
		}
	}

	maxDocs := max(s.cfg.K*len(vectorNames), s.cfg.K)
	if len(picked) > maxDocs {
		picked = picked[:maxDocs]
	}

	text := formatPassages(picked)
	if budget := s.runtime.MaxContextChars(); budget > 0 {
		if runes := []rune(text); len(runes) > budget {
			text = string(runes[:budget])
		}
	}
	return text, nil
}

func (s *Service) selectMMR(query []float32, hits []vectors.ScoredChunk) []domain.Chunk {
	if len(hits) == 0 {
		return nil
	}
	candidates := make([][]float32, len(hits))
	for i, h := range hits {
		candidates[i] = h.Vector
	}
	indices := maximalMarginalRelevance(query, candidates, s.cfg.Lambda, s.cfg.K)
	chunks := make([]domain.Chunk, 0, len(indices))
	for _, i := range indices {
		chunks = append(chunks, hits[i].Chunk)
	}
	return chunks
}

func formatPassages(chunks []domain.Chunk) string {
	lines := make([]string, 0, len(chunks))
	for i, c := range chunks {
		source := c.Metadata.Source
		if source == "" {
			source = "unknown"
		}
		lines = append(lines, fmt.Sprintf("[%d] source=%s h2=%s\n%s", i+1, source, c.Metadata.H2, c.Text))
	}
	return strings.Join(lines, "\n\n")
}

func containsKey(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}
