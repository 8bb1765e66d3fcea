package workspace

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"policyqa/internal/document"
	"policyqa/internal/logger"
	"policyqa/internal/metrics"
	"policyqa/internal/rag"
)

// Service 工作区服务。创建工作区时把成员文档的分块
// 从暂存集合物理克隆到工作区专属集合（洁净室策略）：
// 之后的检索只碰工作区集合，与其他文档完全隔离。
type Service struct {
	db        *gorm.DB
	documents *document.Service
	store     rag.VectorStore
	dimension int
}

// NewService 创建工作区服务。dimension 是向量维度，建集合时需要。
func NewService(db *gorm.DB, documents *document.Service, store rag.VectorStore, dimension int) *Service {
	return &Service{db: db, documents: documents, store: store, dimension: dimension}
}

// Create 创建工作区并克隆成员文档的向量。
// 元数据只在克隆成功之后落库；空成员列表合法，直接落库。
func (s *Service) Create(ctx context.Context, name string, documentIDs []string) (*Workspace, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, rag.NewValidationError("工作区名称不能为空")
	}

	// 先解析全部 ID，任何一个不存在都整体失败
	filenames, err := s.documents.ResolveFilenames(ctx, documentIDs)
	if err != nil {
		return nil, err
	}

	ws := &Workspace{Name: name}
	if err := ws.SetDocumentIDs(documentIDs); err != nil {
		return nil, err
	}
	if err := ws.BeforeCreate(nil); err != nil {
		return nil, err
	}

	if len(filenames) > 0 {
		cloned, err := s.clone(ctx, ws.CollectionName(), filenames)
		if err != nil {
			return nil, err
		}
		ws.ChunkCount = cloned
	}

	if err := s.db.WithContext(ctx).Create(ws).Error; err != nil {
		return nil, err
	}

	metrics.WorkspacesCreated.Inc()
	metrics.ChunksCloned.Add(float64(ws.ChunkCount))

	logger.Info("工作区创建完成",
		zap.String("workspace_id", ws.ID),
		zap.Int("documents", len(documentIDs)),
		zap.Int("chunks", ws.ChunkCount))

	return ws, nil
}

// clone 把暂存集合里属于给定文档的分块复制进目标集合，
// 保持分块 ID 与向量不变，返回复制的分块数
func (s *Service) clone(ctx context.Context, collection string, filenames []string) (int, error) {
	if err := s.store.EnsureCollection(ctx, collection, s.dimension); err != nil {
		return 0, err
	}

	total := 0
	for _, filename := range filenames {
		chunks, err := s.store.Get(ctx, s.documents.StagingCollection(), rag.Filter{DocNames: []string{filename}})
		if err != nil {
			return 0, err
		}
		if len(chunks) == 0 {
			logger.Warn("暂存集合中没有该文档的分块", zap.String("doc_name", filename))
			continue
		}
		if err := s.store.Upsert(ctx, collection, chunks); err != nil {
			return 0, err
		}
		total += len(chunks)
	}
	return total, nil
}

// List 列出全部工作区，按创建时间倒序
func (s *Service) List(ctx context.Context) ([]Workspace, error) {
	var workspaces []Workspace
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&workspaces).Error; err != nil {
		return nil, err
	}
	return workspaces, nil
}

// Get 按 ID 获取工作区
func (s *Service) Get(ctx context.Context, id string) (*Workspace, error) {
	var ws Workspace
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&ws).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, rag.NewNotFoundError("工作区", id)
	}
	if err != nil {
		return nil, err
	}
	return &ws, nil
}

// MemberFilenames 工作区成员文档的文件名列表，检索过滤用
func (s *Service) MemberFilenames(ctx context.Context, ws *Workspace) ([]string, error) {
	return s.documents.ResolveFilenames(ctx, ws.DocumentIDs())
}
