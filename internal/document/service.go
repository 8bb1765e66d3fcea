package document

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"policyqa/internal/logger"
	"policyqa/internal/metrics"
	"policyqa/internal/rag"
	"policyqa/internal/storage"
)

// PageParser 按页抽取文档文本
type PageParser interface {
	ParsePages(r io.Reader, docName string) ([]rag.Page, error)
}

// Service 文档登记与入库流水线：
// 校验 -> 存原始文件 -> 逐页解析 -> 分块 -> 向量化 -> 写入暂存集合 -> 登记元数据。
type Service struct {
	db         *gorm.DB
	blobs      storage.BlobStore
	parser     PageParser
	chunker    *rag.Chunker
	embeddings rag.EmbeddingProvider
	store      rag.VectorStore
	staging    string
}

// NewService 创建文档服务
func NewService(db *gorm.DB, blobs storage.BlobStore, parser PageParser, chunker *rag.Chunker, embeddings rag.EmbeddingProvider, store rag.VectorStore, stagingCollection string) *Service {
	if stagingCollection == "" {
		stagingCollection = "staging_docs"
	}
	return &Service{
		db:         db,
		blobs:      blobs,
		parser:     parser,
		chunker:    chunker,
		embeddings: embeddings,
		store:      store,
		staging:    stagingCollection,
	}
}

// StagingCollection 暂存集合名
func (s *Service) StagingCollection() string { return s.staging }

// Upload 上传并入库一个 PDF 文档。
// 登记之前的任何失败都会回滚原始文件，不留下元数据记录；
// 向量写入成功后的登记失败会留下暂存集合里的孤儿向量，可容忍。
func (s *Service) Upload(ctx context.Context, filename string, r io.Reader) (*Document, error) {
	start := time.Now()

	filename = strings.TrimSpace(filename)
	if filename == "" {
		return nil, rag.NewValidationError("文件名不能为空")
	}
	if strings.ToLower(filepath.Ext(filename)) != ".pdf" {
		return nil, rag.NewValidationError("仅支持上传 PDF 文件")
	}

	// 同名文档拒绝重复上传，保证 chunk_id 全局唯一
	var existing Document
	err := s.db.WithContext(ctx).Where("filename = ?", filename).First(&existing).Error
	if err == nil {
		return nil, rag.NewValidationError("文档 %s 已存在", filename)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	doc := &Document{Filename: filename, Status: StatusProcessing}
	if err := doc.BeforeCreate(nil); err != nil {
		return nil, err
	}

	if _, err := s.blobs.Save(doc.ID, r); err != nil {
		return nil, err
	}

	chunks, pageCount, err := s.ingest(ctx, doc)
	if err != nil {
		// 登记前失败：回滚原始文件
		if delErr := s.blobs.Delete(doc.ID); delErr != nil {
			logger.Warn("回滚原始文件失败", zap.String("doc_id", doc.ID), zap.Error(delErr))
		}
		return nil, err
	}

	doc.Status = StatusAvailable
	doc.PageCount = pageCount
	doc.ChunkCount = len(chunks)
	if err := s.db.WithContext(ctx).Create(doc).Error; err != nil {
		// 登记失败同样回滚原始文件；暂存集合里的向量会被下次
		// 同名上传覆盖，可容忍
		if delErr := s.blobs.Delete(doc.ID); delErr != nil {
			logger.Warn("回滚原始文件失败", zap.String("doc_id", doc.ID), zap.Error(delErr))
		}
		return nil, err
	}

	metrics.DocumentsIngested.Inc()
	metrics.ChunksIndexed.Add(float64(len(chunks)))
	metrics.IngestDuration.Observe(time.Since(start).Seconds())

	logger.Info("文档入库完成",
		zap.String("doc_id", doc.ID),
		zap.String("filename", filename),
		zap.Int("pages", pageCount),
		zap.Int("chunks", len(chunks)))

	return doc, nil
}

// ingest 执行解析到向量写入的流水线，返回写入的分块
func (s *Service) ingest(ctx context.Context, doc *Document) ([]rag.StoredChunk, int, error) {
	blob, err := s.blobs.Open(doc.ID)
	if err != nil {
		return nil, 0, err
	}
	defer blob.Close()

	pages, err := s.parser.ParsePages(blob, doc.Filename)
	if err != nil {
		return nil, 0, err
	}

	chunks, err := s.chunker.ChunkPages(pages)
	if err != nil {
		return nil, 0, err
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := s.embeddings.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, 0, err
	}

	stored := make([]rag.StoredChunk, len(chunks))
	for i, c := range chunks {
		stored[i] = rag.StoredChunk{
			ChunkID:    c.ChunkID,
			DocName:    c.DocName,
			PageNumber: c.PageNumber,
			Text:       c.Text,
			Embedding:  vectors[i],
		}
	}

	if err := s.store.EnsureCollection(ctx, s.staging, s.embeddings.Dimension()); err != nil {
		return nil, 0, err
	}
	if err := s.store.Upsert(ctx, s.staging, stored); err != nil {
		return nil, 0, err
	}

	return stored, len(pages), nil
}

// List 列出全部文档，按上传时间倒序
func (s *Service) List(ctx context.Context) ([]Document, error) {
	var docs []Document
	if err := s.db.WithContext(ctx).Order("upload_timestamp DESC").Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

// Get 按 ID 获取文档
func (s *Service) Get(ctx context.Context, id string) (*Document, error) {
	var doc Document
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, rag.NewNotFoundError("文档", id)
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// ResolveFilenames 把文档 ID 列表解析为文件名列表，保持输入顺序。
// 任何一个 ID 不存在都返回 NotFoundError。
func (s *Service) ResolveFilenames(ctx context.Context, ids []string) ([]string, error) {
	filenames := make([]string, 0, len(ids))
	for _, id := range ids {
		doc, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		filenames = append(filenames, doc.Filename)
	}
	return filenames, nil
}
