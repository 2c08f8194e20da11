package vectors

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kailas-cloud/docrag/internal/db"
	"github.com/kailas-cloud/docrag/internal/domain"
)

// --- Mocks ---

// fakeStore implements db.Store with canned behavior for repo tests.
type fakeStore struct {
	createErr    error
	dropErr      error
	hsetItems    []db.HashSetItem
	hsetErr      error
	countResult  int
	countErr     error
	searchResult *db.SearchResult
	searchErr    error

	createCalls int
	dropCalls   int
	lastKNN     *db.KNNQuery
}

func (f *fakeStore) Ping(context.Context) error                             { return nil }
func (f *fakeStore) Close()                                                 {}
func (f *fakeStore) WaitForReady(context.Context, time.Duration) error      { return nil }
func (f *fakeStore) HSet(context.Context, string, map[string]string) error  { return nil }
func (f *fakeStore) HGetAll(context.Context, string) (map[string]string, error) {
	return nil, nil
}
func (f *fakeStore) Del(context.Context, ...string) error             { return nil }
func (f *fakeStore) Scan(context.Context, string) ([]string, error)   { return nil, nil }
func (f *fakeStore) Get(context.Context, string) ([]byte, error)      { return nil, db.ErrKeyNotFound }
func (f *fakeStore) Set(context.Context, string, []byte) error        { return nil }
func (f *fakeStore) SetWithTTL(context.Context, string, []byte, time.Duration) error {
	return nil
}
func (f *fakeStore) IndexExists(context.Context, string) (bool, error) { return false, nil }

func (f *fakeStore) HSetMulti(_ context.Context, items []db.HashSetItem) error {
	if f.hsetErr != nil {
		return f.hsetErr
	}
	f.hsetItems = append(f.hsetItems, items...)
	return nil
}

func (f *fakeStore) CreateIndex(_ context.Context, _ *db.IndexDefinition) error {
	f.createCalls++
	return f.createErr
}

func (f *fakeStore) DropIndex(_ context.Context, _ string) error {
	f.dropCalls++
	return f.dropErr
}

func (f *fakeStore) SearchCount(_ context.Context, _, _ string) (int, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	return f.countResult, nil
}

func (f *fakeStore) SearchKNN(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	f.lastKNN = q
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.searchResult, nil
}

func newTestRepo(store *fakeStore) *Repo {
	return New(store, "docrag:", 4)
}

// --- Tests ---

func TestEnsureIndex_CreatesWhenMissing(t *testing.T) {
	store := &fakeStore{}
	repo := newTestRepo(store)

	if err := repo.EnsureIndex(context.Background(), "country_rag_fr"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.createCalls != 1 {
		t.Errorf("expected 1 create call, got %d", store.createCalls)
	}
}

func TestEnsureIndex_ToleratesExisting(t *testing.T) {
	store := &fakeStore{createErr: db.ErrIndexExists}
	repo := newTestRepo(store)

	if err := repo.EnsureIndex(context.Background(), "country_rag_fr"); err != nil {
		t.Fatalf("existing index must not be an error: %v", err)
	}
}

func TestEnsureIndex_Error(t *testing.T) {
	store := &fakeStore{createErr: errors.New("connection refused")}
	repo := newTestRepo(store)

	if err := repo.EnsureIndex(context.Background(), "country_rag_fr"); err == nil {
		t.Fatal("expected error")
	}
}

func TestReset_DropsAndRecreates(t *testing.T) {
	store := &fakeStore{}
	repo := newTestRepo(store)

	if err := repo.Reset(context.Background(), "country_rag_fr"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.dropCalls != 1 || store.createCalls != 1 {
		t.Errorf("expected drop+create, got drop=%d create=%d", store.dropCalls, store.createCalls)
	}
}

func TestReset_ToleratesMissingIndex(t *testing.T) {
	store := &fakeStore{dropErr: db.ErrIndexNotFound}
	repo := newTestRepo(store)

	if err := repo.Reset(context.Background(), "country_rag_fr"); err != nil {
		t.Fatalf("missing index must not be an error: %v", err)
	}
	if store.createCalls != 1 {
		t.Error("index should still be recreated")
	}
}

func TestAddChunks_WritesHashFields(t *testing.T) {
	store := &fakeStore{}
	repo := newTestRepo(store)

	chunks := []domain.Chunk{{
		Text: "chunk text",
		Metadata: domain.ChunkMetadata{
			Source:  "fr.md",
			Country: "france",
			DocType: "country",
			H2:      "Section",
		},
	}}
	vectors := [][]float32{{0.1, 0.2, 0.3, 0.4}}

	if err := repo.AddChunks(context.Background(), "country_rag_fr", chunks, vectors); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.hsetItems) != 1 {
		t.Fatalf("expected 1 item, got %d", len(store.hsetItems))
	}

	item := store.hsetItems[0]
	if !strings.HasPrefix(item.Key, "docrag:country_rag_fr:") {
		t.Errorf("unexpected key %s", item.Key)
	}
	if item.Fields["content"] != "chunk text" || item.Fields["source"] != "fr.md" {
		t.Errorf("unexpected fields: %v", item.Fields)
	}
	if item.Fields["country"] != "france" || item.Fields["h2"] != "Section" {
		t.Errorf("unexpected metadata fields: %v", item.Fields)
	}
	if item.Fields["vector"] != db.VectorToBytes(vectors[0]) {
		t.Error("vector not stored as packed bytes")
	}
}

func TestAddChunks_LengthMismatch(t *testing.T) {
	repo := newTestRepo(&fakeStore{})

	err := repo.AddChunks(context.Background(), "country_rag_fr",
		[]domain.Chunk{{Text: "a"}, {Text: "b"}}, [][]float32{{1}})
	if err == nil {
		t.Fatal("expected error for mismatched lengths")
	}
}

func TestAddChunks_Empty(t *testing.T) {
	store := &fakeStore{}
	repo := newTestRepo(store)

	if err := repo.AddChunks(context.Background(), "country_rag_fr", nil, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.hsetItems) != 0 {
		t.Error("nothing should be written for an empty batch")
	}
}

func TestCount(t *testing.T) {
	store := &fakeStore{countResult: 7}
	repo := newTestRepo(store)

	n, err := repo.Count(context.Background(), "country_rag_fr")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 7 {
		t.Errorf("expected 7, got %d", n)
	}
}

func TestCount_MissingIndexIsZero(t *testing.T) {
	store := &fakeStore{countErr: db.ErrIndexNotFound}
	repo := newTestRepo(store)

	n, err := repo.Count(context.Background(), "country_rag_fr")
	if err != nil {
		t.Fatalf("missing index must count as zero: %v", err)
	}
	if n != 0 {
		t.Errorf("expected 0, got %d", n)
	}
}

func TestCount_Error(t *testing.T) {
	store := &fakeStore{countErr: errors.New("connection refused")}
	repo := newTestRepo(store)

	if _, err := repo.Count(context.Background(), "country_rag_fr"); err == nil {
		t.Fatal("expected error")
	}
}

func TestSearchKNN_MapsEntries(t *testing.T) {
	vector := []float32{0.1, 0.2, 0.3, 0.4}
	store := &fakeStore{searchResult: &db.SearchResult{
		Total: 1,
		Entries: []db.SearchEntry{{
			Key: "docrag:country_rag_fr:abc",
			Fields: map[string]string{
				"content":  "passage",
				"source":   "fr.md",
				"country":  "france",
				"doc_type": "country",
				"h2":       "Section",
				"vector":   db.VectorToBytes(vector),
			},
			Score: 0.83,
		}},
	}}
	repo := newTestRepo(store)

	hits, err := repo.SearchKNN(context.Background(), "country_rag_fr", []float32{1, 0, 0, 0}, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(hits))
	}

	hit := hits[0]
	if hit.Chunk.Text != "passage" || hit.Chunk.Metadata.Source != "fr.md" {
		t.Errorf("unexpected chunk: %+v", hit.Chunk)
	}
	if hit.Chunk.Metadata.H2 != "Section" || hit.Chunk.Metadata.Country != "france" {
		t.Errorf("unexpected metadata: %+v", hit.Chunk.Metadata)
	}
	if len(hit.Vector) != 4 || hit.Vector[1] != vector[1] {
		t.Errorf("stored embedding not decoded: %v", hit.Vector)
	}
	if hit.Score != 0.83 {
		t.Errorf("unexpected score %f", hit.Score)
	}

	if store.lastKNN.K != 10 || store.lastKNN.IndexName != "country_rag_fr" {
		t.Errorf("unexpected query: %+v", store.lastKNN)
	}
}

func TestSearchKNN_MissingIndexIsEmpty(t *testing.T) {
	store := &fakeStore{searchErr: db.ErrIndexNotFound}
	repo := newTestRepo(store)

	hits, err := repo.SearchKNN(context.Background(), "country_rag_fr", []float32{1}, 10)
	if err != nil {
		t.Fatalf("missing index must yield no hits: %v", err)
	}
	if hits != nil {
		t.Errorf("expected nil hits, got %v", hits)
	}
}

func TestSearchKNN_Error(t *testing.T) {
	store := &fakeStore{searchErr: errors.New("connection refused")}
	repo := newTestRepo(store)

	if _, err := repo.SearchKNN(context.Background(), "country_rag_fr", []float32{1}, 10); err == nil {
		t.Fatal("expected error")
	}
}
