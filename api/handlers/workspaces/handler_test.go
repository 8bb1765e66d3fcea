package workspaces

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"policyqa/internal/document"
	"policyqa/internal/rag"
	"policyqa/internal/workspace"
)

type fakeVectorStore struct {
	collections map[string][]rag.StoredChunk
}

func newFakeVectorStore() *fakeVectorStore {
	return &fakeVectorStore{collections: make(map[string][]rag.StoredChunk)}
}

func (f *fakeVectorStore) EnsureCollection(ctx context.Context, collection string, dimension int) error {
	return nil
}

func (f *fakeVectorStore) Upsert(ctx context.Context, collection string, chunks []rag.StoredChunk) error {
	f.collections[collection] = append(f.collections[collection], chunks...)
	return nil
}

func (f *fakeVectorStore) Query(ctx context.Context, collection string, vector []float32, topK int, filter rag.Filter) ([]rag.SearchResult, error) {
	return nil, nil
}

func (f *fakeVectorStore) Get(ctx context.Context, collection string, filter rag.Filter) ([]rag.StoredChunk, error) {
	var out []rag.StoredChunk
	for _, c := range f.collections[collection] {
		for _, name := range filter.DocNames {
			if c.DocName == name {
				out = append(out, c)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeVectorStore) DeleteByDocument(ctx context.Context, collection string, docName string) error {
	return nil
}

func (f *fakeVectorStore) Count(ctx context.Context, collection string) (int, error) {
	return len(f.collections[collection]), nil
}

func setupRouter(t *testing.T) (*gin.Engine, *gorm.DB, *fakeVectorStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:wsh_%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&document.Document{}, &workspace.Workspace{}))

	store := newFakeVectorStore()
	docs := document.NewService(db, nil, nil, rag.NewChunker(100, 20), nil, store, "staging_docs")
	handler := NewHandler(workspace.NewService(db, docs, store, 4))

	r := gin.New()
	r.POST("/api/v1/workspaces", handler.Create)
	r.GET("/api/v1/workspaces", handler.List)
	r.GET("/api/v1/workspaces/:id", handler.Get)
	return r, db, store
}

func seedDocument(t *testing.T, db *gorm.DB, store *fakeVectorStore, filename string) *document.Document {
	t.Helper()
	doc := &document.Document{Filename: filename, Status: document.StatusAvailable, PageCount: 1, ChunkCount: 2}
	require.NoError(t, db.Create(doc).Error)
	require.NoError(t, store.Upsert(context.Background(), "staging_docs", []rag.StoredChunk{
		{ChunkID: rag.ChunkID(filename, 1, 1), DocName: filename, PageNumber: 1, Text: "第一段", Embedding: []float32{1, 0, 0, 0}},
		{ChunkID: rag.ChunkID(filename, 1, 2), DocName: filename, PageNumber: 1, Text: "第二段", Embedding: []float32{0, 1, 0, 0}},
	}))
	return doc
}

func postJSON(r *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateWorkspace(t *testing.T) {
	r, db, store := setupRouter(t)
	doc := seedDocument(t, db, store, "gdpr.pdf")

	w := postJSON(r, "/api/v1/workspaces", gin.H{
		"name":         "合规问答",
		"document_ids": []string{doc.ID},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "合规问答", resp["name"])
	require.Equal(t, float64(2), resp["chunk_count"])
	require.Equal(t, []any{doc.ID}, resp["document_ids"])

	id, _ := resp["id"].(string)
	require.Regexp(t, `^ws_[0-9a-f]{8}$`, id)
}

func TestCreateWorkspaceUnknownDocument(t *testing.T) {
	r, _, _ := setupRouter(t)

	w := postJSON(r, "/api/v1/workspaces", gin.H{
		"name":         "无效引用",
		"document_ids": []string{"doc_missing"},
	})
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Contains(t, w.Body.String(), "NOT_FOUND")
}

func TestCreateWorkspaceMissingName(t *testing.T) {
	r, _, _ := setupRouter(t)

	w := postJSON(r, "/api/v1/workspaces", gin.H{"document_ids": []string{}})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "VALIDATION_ERROR")
}

func TestGetWorkspaceNotFound(t *testing.T) {
	r, _, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/workspaces/ws_missing", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestListWorkspaces(t *testing.T) {
	r, _, _ := setupRouter(t)

	w1 := postJSON(r, "/api/v1/workspaces", gin.H{"name": "空工作区"})
	require.Equal(t, http.StatusCreated, w1.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/workspaces", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, float64(1), resp["total"])
}
