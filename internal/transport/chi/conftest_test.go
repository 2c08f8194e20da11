package chi

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docrag/internal/chunker"
	"github.com/kailas-cloud/docrag/internal/domain"
	"github.com/kailas-cloud/docrag/internal/registry"
	"github.com/kailas-cloud/docrag/internal/repository/corpus"
	"github.com/kailas-cloud/docrag/internal/repository/uploads"
	"github.com/kailas-cloud/docrag/internal/repository/vectors"
	indexuc "github.com/kailas-cloud/docrag/internal/usecase/index"
	moderationuc "github.com/kailas-cloud/docrag/internal/usecase/moderation"
	queryuc "github.com/kailas-cloud/docrag/internal/usecase/query"
	systemuc "github.com/kailas-cloud/docrag/internal/usecase/system"
)

// --- Mocks ---

// fakeVectorStore backs both the index repo and the query searcher.
type fakeVectorStore struct {
	counts map[string]int
	hits   map[string][]vectors.ScoredChunk
}

func newFakeVectorStore() *fakeVectorStore {
	return &fakeVectorStore{
		counts: make(map[string]int),
		hits:   make(map[string][]vectors.ScoredChunk),
	}
}

func (f *fakeVectorStore) EnsureIndex(_ context.Context, _ string) error { return nil }

func (f *fakeVectorStore) Reset(_ context.Context, name string) error {
	f.counts[name] = 0
	return nil
}

func (f *fakeVectorStore) AddChunks(_ context.Context, name string, chunks []domain.Chunk, _ [][]float32) error {
	f.counts[name] += len(chunks)
	return nil
}

func (f *fakeVectorStore) Count(_ context.Context, name string) (int, error) {
	return f.counts[name], nil
}

func (f *fakeVectorStore) SearchKNN(_ context.Context, name string, _ []float32, _ int) ([]vectors.ScoredChunk, error) {
	return f.hits[name], nil
}

type fakeBatchEmbedder struct{}

func (fakeBatchEmbedder) BatchEmbed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2}
	}
	return out, nil
}

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{Embedding: []float32{1, 0}, TotalTokens: 3}, nil
}

type fakeChatter struct {
	answer string
}

func (f *fakeChatter) Complete(_ context.Context, _ string) (string, error) { return f.answer, nil }
func (f *fakeChatter) Provider() string                                     { return "openai" }
func (f *fakeChatter) ModelName() string                                    { return "gpt-4o-mini" }

type fakeRuntime struct {
	adminCode   string
	autoApprove bool
}

func (f fakeRuntime) AdminCode() string {
	if f.adminCode != "" {
		return f.adminCode
	}
	return "admin1234"
}

func (f fakeRuntime) AutoApprove() bool          { return f.autoApprove }
func (f fakeRuntime) QueryTimeoutSeconds() int   { return 15 }
func (f fakeRuntime) MaxContextChars() int       { return 0 }
func (f fakeRuntime) ChunkingMode() string       { return chunker.ModeChar }
func (f fakeRuntime) ChunkTokenEncoding() string { return chunker.DefaultTokenEncoding }

// --- Fixture ---

type fixture struct {
	server *httptest.Server
	store  *fakeVectorStore
	dirs   struct{ data string }
}

func newFixture(t *testing.T, rt fakeRuntime) *fixture {
	t.Helper()

	reg := registry.Default()
	logger := zap.NewNop()
	store := newFakeVectorStore()

	dataDir := t.TempDir()
	loader := corpus.NewLoader(dataDir, reg, logger)

	uploadStore, err := uploads.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("uploads.NewStore: %v", err)
	}

	indexSvc := indexuc.New(store, fakeBatchEmbedder{}, loader, rt, indexuc.Config{}, logger)
	factory := func(_, _, _, _ string) (queryuc.Chatter, error) {
		return &fakeChatter{answer: "1) Key answer: yes"}, nil
	}
	querySvc := queryuc.New(reg, store, fakeEmbedder{}, factory, rt, queryuc.Config{}, logger)
	moderationSvc := moderationuc.New(reg, uploadStore, indexSvc, rt, logger)
	systemSvc := systemuc.New(reg, indexSvc, moderationSvc, rt, "store", logger)

	srv := NewServer(reg, querySvc, indexSvc, moderationSvc, systemSvc, loader, logger)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	f := &fixture{server: ts, store: store}
	f.dirs.data = dataDir
	return f
}

func (f *fixture) writeDataFile(t *testing.T, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(f.dirs.data, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func usableMarkdown() string {
	return "## Section\n" + strings.Repeat("abcdefghij ", 30)
}
