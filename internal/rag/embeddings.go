package rag

import "context"

// EmbeddingProvider 抽象不同向量模型/服务的统一接口。
// EmbedBatch 必须保持输入顺序与长度一致；Embed 是单条特化，
// 内部统一走"批量返回取第 0 个元素"的约定，避免上游单条/批量格式差异泄漏。
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	GetModel() string
	GetProviderName() string
	Dimension() int
}
