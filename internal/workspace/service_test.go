package workspace

import (
	"context"
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"policyqa/internal/document"
	"policyqa/internal/rag"
)

type fakeVectorStore struct {
	collections map[string][]rag.StoredChunk
	ensured     []string
	upserts     int
}

func newFakeVectorStore() *fakeVectorStore {
	return &fakeVectorStore{collections: make(map[string][]rag.StoredChunk)}
}

func (f *fakeVectorStore) EnsureCollection(ctx context.Context, collection string, dimension int) error {
	f.ensured = append(f.ensured, collection)
	if _, ok := f.collections[collection]; !ok {
		f.collections[collection] = nil
	}
	return nil
}

func (f *fakeVectorStore) Upsert(ctx context.Context, collection string, chunks []rag.StoredChunk) error {
	f.upserts++
	f.collections[collection] = append(f.collections[collection], chunks...)
	return nil
}

func (f *fakeVectorStore) Query(ctx context.Context, collection string, vector []float32, topK int, filter rag.Filter) ([]rag.SearchResult, error) {
	return nil, nil
}

func (f *fakeVectorStore) Get(ctx context.Context, collection string, filter rag.Filter) ([]rag.StoredChunk, error) {
	var out []rag.StoredChunk
	for _, c := range f.collections[collection] {
		if filter.IsZero() || containsString(filter.DocNames, c.DocName) {
			out = append(out, c)
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

func containsString(list []string, target string) bool {
	for _, v := range list {
		if v == target {
			return true
		}
	}
	return false
}

func newTestService(t *testing.T) (*Service, *gorm.DB, *fakeVectorStore) {
	t.Helper()
	dsn := fmt.Sprintf("file:ws_%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&document.Document{}, &Workspace{}))

	store := newFakeVectorStore()
	docs := document.NewService(db, nil, nil, rag.NewChunker(100, 20), nil, store, "staging_docs")
	return NewService(db, docs, store, 4), db, store
}

// seedDocument 直接登记一条可用文档并向暂存集合写入分块
func seedDocument(t *testing.T, db *gorm.DB, store *fakeVectorStore, filename string, chunkCount int) *document.Document {
	t.Helper()
	doc := &document.Document{Filename: filename, Status: document.StatusAvailable, PageCount: 1, ChunkCount: chunkCount}
	require.NoError(t, db.Create(doc).Error)

	chunks := make([]rag.StoredChunk, chunkCount)
	for i := range chunks {
		chunks[i] = rag.StoredChunk{
			ChunkID:    rag.ChunkID(filename, 1, i+1),
			DocName:    filename,
			PageNumber: 1,
			Text:       fmt.Sprintf("%s 的第 %d 段内容", filename, i+1),
			Embedding:  []float32{1, 2, 3, 4},
		}
	}
	require.NoError(t, store.Upsert(context.Background(), "staging_docs", chunks))
	return doc
}

func TestCreateClonesMemberChunks(t *testing.T) {
	svc, db, store := newTestService(t)
	docA := seedDocument(t, db, store, "gdpr.pdf", 3)
	docB := seedDocument(t, db, store, "hipaa.pdf", 2)
	seedDocument(t, db, store, "other.pdf", 5)
	store.upserts = 0

	ws, err := svc.Create(context.Background(), "合规问答", []string{docA.ID, docB.ID})
	require.NoError(t, err)
	require.Equal(t, 5, ws.ChunkCount)
	require.Equal(t, []string{docA.ID, docB.ID}, ws.DocumentIDs())

	// 克隆只包含成员文档的分块，ID 与向量原样保留
	cloned := store.collections[ws.CollectionName()]
	require.Len(t, cloned, 5)
	for _, c := range cloned {
		require.Contains(t, []string{"gdpr.pdf", "hipaa.pdf"}, c.DocName)
		require.Equal(t, []float32{1, 2, 3, 4}, c.Embedding)
		require.NotEmpty(t, c.ChunkID)
	}

	// 元数据已落库
	got, err := svc.Get(context.Background(), ws.ID)
	require.NoError(t, err)
	require.Equal(t, "合规问答", got.Name)
	require.Equal(t, 5, got.ChunkCount)
}

func TestCreateFailsWhenDocumentMissing(t *testing.T) {
	svc, db, store := newTestService(t)
	docA := seedDocument(t, db, store, "gdpr.pdf", 3)

	_, err := svc.Create(context.Background(), "无效引用", []string{docA.ID, "doc_missing"})
	require.Error(t, err)
	require.True(t, rag.IsNotFound(err))

	// 整体失败：不落库，也不建集合
	workspaces, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Empty(t, workspaces)
	require.Len(t, store.collections, 1) // 只有暂存集合
}

func TestCreateEmptyDocumentList(t *testing.T) {
	svc, _, store := newTestService(t)

	ws, err := svc.Create(context.Background(), "空工作区", nil)
	require.NoError(t, err)
	require.Equal(t, 0, ws.ChunkCount)
	require.Empty(t, ws.DocumentIDs())

	// 不触碰向量库
	require.Empty(t, store.ensured)
	require.Zero(t, store.upserts)

	got, err := svc.Get(context.Background(), ws.ID)
	require.NoError(t, err)
	require.Equal(t, "[]", got.DocumentIDsRaw)
}

func TestCreateRejectsEmptyName(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Create(context.Background(), "   ", nil)
	require.Error(t, err)
	require.True(t, rag.IsValidation(err))
}

func TestMemberFilenames(t *testing.T) {
	svc, db, store := newTestService(t)
	docA := seedDocument(t, db, store, "gdpr.pdf", 1)
	docB := seedDocument(t, db, store, "hipaa.pdf", 1)

	ws, err := svc.Create(context.Background(), "两份文档", []string{docB.ID, docA.ID})
	require.NoError(t, err)

	names, err := svc.MemberFilenames(context.Background(), ws)
	require.NoError(t, err)
	require.Equal(t, []string{"hipaa.pdf", "gdpr.pdf"}, names)
}
