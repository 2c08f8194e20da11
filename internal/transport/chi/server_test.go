package chi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/kailas-cloud/docrag/internal/domain"
	"github.com/kailas-cloud/docrag/internal/repository/vectors"
)

func doJSON(t *testing.T, method, url string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	t.Cleanup(func() { _ = res.Body.Close() })

	var payload map[string]any
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil && err != io.EOF {
		t.Fatalf("decode response: %v", err)
	}
	return res, payload
}

func TestHealth(t *testing.T) {
	f := newFixture(t, fakeRuntime{})

	res, body := doJSON(t, http.MethodGet, f.server.URL+"/health", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.StatusCode)
	}
	if body["status"] != "ok" {
		t.Errorf("unexpected status: %v", body["status"])
	}
	if body["collection_key"] != "all" || body["collection"] != "country_rag_all" {
		t.Errorf("unexpected collection fields: %v", body)
	}
	if _, present := body["max_context_chars"]; !present {
		t.Error("max_context_chars should be present (null when unset)")
	}
	if body["max_context_chars"] != nil {
		t.Errorf("expected null max_context_chars, got %v", body["max_context_chars"])
	}
	if body["query_timeout_seconds"] != float64(15) {
		t.Errorf("unexpected timeout: %v", body["query_timeout_seconds"])
	}
}

func TestCollections(t *testing.T) {
	f := newFixture(t, fakeRuntime{})
	f.store.counts["country_rag_fr"] = 42

	res, body := doJSON(t, http.MethodGet, f.server.URL+"/collections", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.StatusCode)
	}
	if body["default_collection_key"] != "all" {
		t.Errorf("unexpected default key: %v", body["default_collection_key"])
	}

	cols, ok := body["collections"].([]any)
	if !ok || len(cols) != 6 {
		t.Fatalf("expected 6 collections, got %v", body["collections"])
	}
	var fr map[string]any
	for _, c := range cols {
		entry := c.(map[string]any)
		if entry["key"] == "fr" {
			fr = entry
		}
	}
	if fr == nil {
		t.Fatal("fr collection missing")
	}
	if fr["vectors"] != float64(42) || fr["name"] != "country_rag_fr" {
		t.Errorf("unexpected fr entry: %v", fr)
	}
	if _, ok := fr["hard_cap"]; !ok {
		t.Error("cap fields should be flattened into the entry")
	}
}

func TestQuery_HappyPath(t *testing.T) {
	f := newFixture(t, fakeRuntime{})
	f.store.counts["country_rag_fr"] = 3
	f.store.hits["country_rag_fr"] = []vectors.ScoredChunk{{
		Chunk: domain.Chunk{
			Text:     "passage",
			Metadata: domain.ChunkMetadata{Source: "fr.md", H2: "A"},
		},
		Vector: []float32{1, 0},
		Score:  0.9,
	}}

	res, body := doJSON(t, http.MethodPost, f.server.URL+"/query",
		map[string]any{"query": "science in france"})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d (%v)", res.StatusCode, body)
	}
	if body["answer"] != "1) Key answer: yes" {
		t.Errorf("unexpected answer: %v", body["answer"])
	}
	if body["provider"] != "openai" || body["model"] != "gpt-4o-mini" {
		t.Errorf("unexpected provider/model: %v", body)
	}
	if got := res.Header.Get("X-RAG-Collections"); got != "country_rag_fr" {
		t.Errorf("unexpected X-RAG-Collections header: %q", got)
	}
}

func TestQuery_MissingQuery(t *testing.T) {
	f := newFixture(t, fakeRuntime{})

	res, body := doJSON(t, http.MethodPost, f.server.URL+"/query", map[string]any{"query": "  "})
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.StatusCode)
	}
	if body["code"] != domain.CodeInvalidRequest {
		t.Errorf("unexpected code: %v", body["code"])
	}
	if body["request_id"] == nil || body["request_id"] == "" {
		t.Error("error payload should carry a request id")
	}
}

func TestQuery_EmptyStore(t *testing.T) {
	f := newFixture(t, fakeRuntime{})

	res, body := doJSON(t, http.MethodPost, f.server.URL+"/query",
		map[string]any{"query": "anything", "collection": "uk"})
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.StatusCode)
	}
	if body["code"] != domain.CodeVectorstoreEmpty {
		t.Errorf("unexpected code: %v", body["code"])
	}
}

func TestQuery_RequestIDEchoed(t *testing.T) {
	f := newFixture(t, fakeRuntime{})

	req, _ := http.NewRequest(http.MethodPost, f.server.URL+"/query", strings.NewReader("{}"))
	req.Header.Set("X-Request-ID", "req-123")
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer func() { _ = res.Body.Close() }()

	if got := res.Header.Get("X-Request-ID"); got != "req-123" {
		t.Errorf("request id not echoed in header: %q", got)
	}
	var body map[string]any
	_ = json.NewDecoder(res.Body).Decode(&body)
	if body["request_id"] != "req-123" {
		t.Errorf("request id not echoed in error payload: %v", body["request_id"])
	}
}

func TestReindex(t *testing.T) {
	f := newFixture(t, fakeRuntime{})
	f.writeDataFile(t, "fr.md", usableMarkdown())

	res, body := doJSON(t, http.MethodPost, f.server.URL+"/reindex",
		map[string]any{"collection": "fr"})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d (%v)", res.StatusCode, body)
	}
	if body["collection_key"] != "fr" || body["collection"] != "country_rag_fr" {
		t.Errorf("unexpected collection fields: %v", body)
	}
	if body["docs"] != float64(1) {
		t.Errorf("unexpected docs: %v", body["docs"])
	}
	if f.store.counts["country_rag_fr"] == 0 {
		t.Error("reindex should have written vectors")
	}

	validation, ok := body["validation"].(map[string]any)
	if !ok || validation["usable_docs"] == nil {
		t.Errorf("missing validation summary: %v", body["validation"])
	}
}

func TestReindex_NoFiles(t *testing.T) {
	f := newFixture(t, fakeRuntime{})

	res, body := doJSON(t, http.MethodPost, f.server.URL+"/reindex",
		map[string]any{"collection": "fr"})
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.StatusCode)
	}
	if body["code"] != domain.CodeInvalidRequest {
		t.Errorf("unexpected code: %v", body["code"])
	}
}

func TestReindex_UnknownCollection(t *testing.T) {
	f := newFixture(t, fakeRuntime{})

	res, body := doJSON(t, http.MethodPost, f.server.URL+"/reindex",
		map[string]any{"collection": "atlantis"})
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.StatusCode)
	}
	if body["code"] != domain.CodeInvalidCollection {
		t.Errorf("unexpected code: %v", body["code"])
	}
}

func TestUploadLifecycle(t *testing.T) {
	f := newFixture(t, fakeRuntime{})

	// Create.
	res, body := doJSON(t, http.MethodPost, f.server.URL+"/upload-requests", map[string]any{
		"content":     usableMarkdown(),
		"source_name": "galileo",
		"collection":  "it",
	})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("create: expected 200, got %d (%v)", res.StatusCode, body)
	}
	request := body["request"].(map[string]any)
	id := request["id"].(string)
	if request["status"] != "pending" || request["source_name"] != "galileo.md" {
		t.Errorf("unexpected created request: %v", request)
	}

	// List with counts.
	res, body = doJSON(t, http.MethodGet, f.server.URL+"/upload-requests", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", res.StatusCode)
	}
	counts := body["counts"].(map[string]any)
	if counts["pending"] != float64(1) {
		t.Errorf("unexpected counts: %v", counts)
	}

	// Approve with a wrong code.
	res, body = doJSON(t, http.MethodPost, f.server.URL+"/upload-requests/"+id+"/approve",
		map[string]any{"code": "nope"})
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.StatusCode)
	}
	if body["code"] != domain.CodeUnauthorized {
		t.Errorf("unexpected code: %v", body["code"])
	}

	// Approve with the right code.
	res, body = doJSON(t, http.MethodPost, f.server.URL+"/upload-requests/"+id+"/approve",
		map[string]any{"code": "admin1234"})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("approve: expected 200, got %d (%v)", res.StatusCode, body)
	}
	request = body["request"].(map[string]any)
	if request["status"] != "approved" {
		t.Errorf("unexpected status after approve: %v", request["status"])
	}
	if request["ingest"] == nil {
		t.Error("approved request should carry the ingest result")
	}
	if f.store.counts["country_rag_it"] == 0 {
		t.Error("approve should have ingested into the collection")
	}

	// Approving again fails: the request already left pending.
	res, body = doJSON(t, http.MethodPost, f.server.URL+"/upload-requests/"+id+"/approve",
		map[string]any{"code": "admin1234"})
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.StatusCode)
	}
	if body["code"] != domain.CodeInvalidRequest {
		t.Errorf("unexpected code: %v", body["code"])
	}

	// Fetch by id.
	res, body = doJSON(t, http.MethodGet, f.server.URL+"/upload-requests/"+id, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", res.StatusCode)
	}
	request = body["request"].(map[string]any)
	if request["id"] != id {
		t.Errorf("unexpected request: %v", request)
	}
}

func TestUploadReject(t *testing.T) {
	f := newFixture(t, fakeRuntime{})

	_, body := doJSON(t, http.MethodPost, f.server.URL+"/upload-requests", map[string]any{
		"content": usableMarkdown(),
	})
	id := body["request"].(map[string]any)["id"].(string)

	res, body := doJSON(t, http.MethodPost, f.server.URL+"/upload-requests/"+id+"/reject",
		map[string]any{"code": "admin1234", "reason": "  not relevant  "})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d (%v)", res.StatusCode, body)
	}
	request := body["request"].(map[string]any)
	if request["status"] != "rejected" || request["rejected_reason"] != "not relevant" {
		t.Errorf("unexpected rejected request: %v", request)
	}

	// Missing reason.
	res, body = doJSON(t, http.MethodPost, f.server.URL+"/upload-requests/"+id+"/reject",
		map[string]any{"code": "admin1234", "reason": " "})
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.StatusCode)
	}
	if body["code"] != domain.CodeInvalidRequest {
		t.Errorf("unexpected code: %v", body["code"])
	}
}

func TestUploadList_InvalidStatus(t *testing.T) {
	f := newFixture(t, fakeRuntime{})

	res, body := doJSON(t, http.MethodGet, f.server.URL+"/upload-requests?status=archived", nil)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.StatusCode)
	}
	if body["code"] != domain.CodeInvalidRequest {
		t.Errorf("unexpected code: %v", body["code"])
	}
}

func TestUploadGet_NotFound(t *testing.T) {
	f := newFixture(t, fakeRuntime{})

	res, body := doJSON(t, http.MethodGet, f.server.URL+"/upload-requests/missing", nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.StatusCode)
	}
	if body["code"] != domain.CodeNotFound {
		t.Errorf("unexpected code: %v", body["code"])
	}
}

func TestAdminAuth(t *testing.T) {
	f := newFixture(t, fakeRuntime{})

	res, body := doJSON(t, http.MethodPost, f.server.URL+"/admin/auth",
		map[string]any{"code": "admin1234"})
	if res.StatusCode != http.StatusOK || body["ok"] != true {
		t.Errorf("expected ok, got %d %v", res.StatusCode, body)
	}

	res, _ = doJSON(t, http.MethodPost, f.server.URL+"/admin/auth",
		map[string]any{"code": "wrong"})
	if res.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", res.StatusCode)
	}
}

func TestRagDocs(t *testing.T) {
	f := newFixture(t, fakeRuntime{})
	f.writeDataFile(t, "uk.md", "## Britain\ncontent")

	res, body := doJSON(t, http.MethodGet, f.server.URL+"/rag-docs", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.StatusCode)
	}
	docs := body["docs"].([]any)
	if len(docs) != 1 {
		t.Fatalf("expected 1 doc, got %v", docs)
	}
	if docs[0].(map[string]any)["name"] != "uk.md" {
		t.Errorf("unexpected doc entry: %v", docs[0])
	}

	raw, err := http.Get(f.server.URL + "/rag-docs/uk.md")
	if err != nil {
		t.Fatalf("get doc: %v", err)
	}
	defer func() { _ = raw.Body.Close() }()
	if raw.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", raw.StatusCode)
	}
	if ct := raw.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/markdown") {
		t.Errorf("unexpected content type %q", ct)
	}
	data, _ := io.ReadAll(raw.Body)
	if string(data) != "## Britain\ncontent" {
		t.Errorf("unexpected doc body %q", data)
	}

	res, body = doJSON(t, http.MethodGet, f.server.URL+"/rag-docs/other.md", nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.StatusCode)
	}
	if body["code"] != domain.CodeNotFound {
		t.Errorf("unexpected code: %v", body["code"])
	}
}

func TestStaticPages(t *testing.T) {
	f := newFixture(t, fakeRuntime{})

	client := &http.Client{
		CheckRedirect: func(_ *http.Request, _ []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	res, err := client.Get(f.server.URL + "/")
	if err != nil {
		t.Fatalf("get /: %v", err)
	}
	defer func() { _ = res.Body.Close() }()
	if res.StatusCode != http.StatusTemporaryRedirect {
		t.Fatalf("expected 307, got %d", res.StatusCode)
	}
	if loc := res.Header.Get("Location"); loc != "/intro" {
		t.Errorf("unexpected redirect target %q", loc)
	}

	for _, path := range []string{"/intro", "/app", "/admin", "/styles.css"} {
		res, err := http.Get(f.server.URL + path)
		if err != nil {
			t.Fatalf("get %s: %v", path, err)
		}
		_ = res.Body.Close()
		if res.StatusCode != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, res.StatusCode)
		}
	}
}

func TestCreateUpload_AutoApprove(t *testing.T) {
	f := newFixture(t, fakeRuntime{autoApprove: true})

	res, body := doJSON(t, http.MethodPost, f.server.URL+"/upload-requests", map[string]any{
		"content":    usableMarkdown(),
		"collection": "ge",
	})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d (%v)", res.StatusCode, body)
	}
	if body["auto_approve"] != true {
		t.Errorf("auto_approve flag missing: %v", body)
	}
	request := body["request"].(map[string]any)
	if request["status"] != "approved" {
		t.Errorf("expected approved, got %v", request["status"])
	}
	if f.store.counts["country_rag_ge"] == 0 {
		t.Error("auto-approve should have ingested immediately")
	}
}

func TestCapExceededDetailOnWire(t *testing.T) {
	f := newFixture(t, fakeRuntime{})
	f.writeDataFile(t, "fr.md", usableMarkdown())
	f.store.counts["country_rag_fr"] = domain.DefaultHardCap

	res, body := doJSON(t, http.MethodPost, f.server.URL+"/reindex",
		map[string]any{"collection": "fr", "reset": false})
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d (%v)", res.StatusCode, body)
	}
	if body["code"] != domain.CodeCapExceeded {
		t.Errorf("unexpected code: %v", body["code"])
	}
	detail, ok := body["detail"].(map[string]any)
	if !ok {
		t.Fatalf("expected structured detail, got %v", body["detail"])
	}
	if detail["collection_key"] != "fr" {
		t.Errorf("unexpected detail: %v", detail)
	}
	if fmt.Sprintf("%v", detail["hard_cap"]) != fmt.Sprintf("%v", float64(domain.DefaultHardCap)) {
		t.Errorf("unexpected hard cap: %v", detail["hard_cap"])
	}
}
