package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/kotae/internal/chat"
	"github.com/hyperjump/kotae/internal/chunker"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/generate"
	"github.com/hyperjump/kotae/internal/indexer"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/vector"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Storage.PersistDir = filepath.Join(dir, "index")
	cfg.Storage.UploadDir = filepath.Join(dir, "uploads")
	cfg.Storage.DatabasePath = filepath.Join(dir, "kotae.db")

	store, err := vector.NewStore(cfg.Storage.PersistDir, "documents", embedding.NewMockEmbedder(32), nil)
	if err != nil {
		t.Fatal(err)
	}
	reg, err := storage.NewSQLiteRegistry(cfg.Storage.DatabasePath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = reg.Close() })

	gen := generate.GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		return "a generated answer", nil
	})
	chatSvc := chat.NewService(store, gen, 3, 10, nil)
	ix := indexer.New(chunker.New(50, 10), store, reg, cfg.Storage.UploadDir, nil)
	return NewServer(chatSvc, ix, store, reg, cfg, zap.NewNop())
}

func multipartBody(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	_ = mw.Close()
	return &buf, mw.FormDataContentType()
}

func uploadDoc(t *testing.T, router http.Handler, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	body, ctype := multipartBody(t, filename, content)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", body)
	req.Header.Set("Content-Type", ctype)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestHandleHealth(t *testing.T) {
	router := newTestServer(t).Router()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("status=%d", rr.Code)
	}
}

func TestHandleUpload(t *testing.T) {
	router := newTestServer(t).Router()
	rr := uploadDoc(t, router, "notes.txt", strings.Repeat("words about retrieval and indexing ", 10))
	if rr.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	var resp models.UploadResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Filename != "notes.txt" || resp.NumChunks == 0 {
		t.Errorf("resp=%+v", resp)
	}
	if resp.Stats.TotalChunks != resp.NumChunks {
		t.Errorf("stats=%+v", resp.Stats)
	}
}

func TestHandleUpload_UnsupportedFormat(t *testing.T) {
	router := newTestServer(t).Router()
	rr := uploadDoc(t, router, "sheet.xlsx", "data")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status=%d", rr.Code)
	}
}

func TestHandleUpload_MissingFileField(t *testing.T) {
	router := newTestServer(t).Router()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("other", "value")
	_ = mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status=%d", rr.Code)
	}
}

func TestHandleChat(t *testing.T) {
	router := newTestServer(t).Router()
	if rr := uploadDoc(t, router, "facts.txt", "the capital of japan is tokyo and it is very large"); rr.Code != http.StatusCreated {
		t.Fatalf("upload status=%d", rr.Code)
	}

	body, _ := json.Marshal(models.ChatRequest{Message: "what is the capital of japan?"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	var resp models.ChatResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Reply != "a generated answer" {
		t.Errorf("reply=%q", resp.Reply)
	}
	if !resp.UsedRAG || resp.RetrievedChunks == 0 {
		t.Errorf("used_rag=%v chunks=%d", resp.UsedRAG, resp.RetrievedChunks)
	}
}

func TestHandleChat_EmptyMessage(t *testing.T) {
	router := newTestServer(t).Router()
	body, _ := json.Marshal(models.ChatRequest{Message: "   "})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status=%d", rr.Code)
	}
}

func TestHandleChat_InvalidBody(t *testing.T) {
	router := newTestServer(t).Router()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader("{not json"))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status=%d", rr.Code)
	}
}

func TestHandleListAndGetDocuments(t *testing.T) {
	router := newTestServer(t).Router()
	if rr := uploadDoc(t, router, "a.txt", "document a content with several words"); rr.Code != http.StatusCreated {
		t.Fatalf("upload status=%d", rr.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("list status=%d", rr.Code)
	}
	var list struct {
		Documents []models.FileInfo `json:"documents"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if len(list.Documents) != 1 || list.Documents[0].Filename != "a.txt" || list.Documents[0].ChunkCount == 0 {
		t.Errorf("documents=%+v", list.Documents)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/documents/a.txt", nil)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("get status=%d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/documents/missing.txt", nil)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Errorf("missing status=%d", rr.Code)
	}
}

func TestHandleClearAndStats(t *testing.T) {
	router := newTestServer(t).Router()
	if rr := uploadDoc(t, router, "a.txt", "some content to index before clearing"); rr.Code != http.StatusCreated {
		t.Fatalf("upload status=%d", rr.Code)
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/documents", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("clear status=%d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	var stats models.CollectionStats
	if err := json.Unmarshal(rr.Body.Bytes(), &stats); err != nil {
		t.Fatal(err)
	}
	if stats.TotalChunks != 0 {
		t.Errorf("total_chunks=%d after clear", stats.TotalChunks)
	}
}

func TestHandleStatus(t *testing.T) {
	router := newTestServer(t).Router()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	var resp map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if _, ok := resp["config"]; !ok {
		t.Error("status response missing config")
	}
	if resp["collection"] != "documents" {
		t.Errorf("collection=%v", resp["collection"])
	}
}

func TestHandleResetSession(t *testing.T) {
	router := newTestServer(t).Router()
	body, _ := json.Marshal(models.ChatRequest{Message: "hello", SessionID: "s1"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("chat status=%d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/v1/sessions/s1", nil)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("reset status=%d", rr.Code)
	}
}
