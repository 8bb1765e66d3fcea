package rag

import "context"

// VectorStore 向量库抽象。集合名由调用方显式传入：
// 暂存集合与工作区集合共用同一套操作。
type VectorStore interface {
	// EnsureCollection 确保集合存在，不存在则创建
	EnsureCollection(ctx context.Context, collection string, dimension int) error

	// Upsert 批量写入分块（写入前必须已向量化）
	Upsert(ctx context.Context, collection string, chunks []StoredChunk) error

	// Query 相似度检索，按分数降序返回至多 topK 条
	Query(ctx context.Context, collection string, vector []float32, topK int, filter Filter) ([]SearchResult, error)

	// Get 按过滤条件读取分块（含向量），用于跨集合克隆
	Get(ctx context.Context, collection string, filter Filter) ([]StoredChunk, error)

	// DeleteByDocument 删除指定文档的全部分块
	DeleteByDocument(ctx context.Context, collection string, docName string) error

	// Count 统计集合内的分块数量
	Count(ctx context.Context, collection string) (int, error)
}
