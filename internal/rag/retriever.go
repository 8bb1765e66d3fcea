package rag

import (
	"context"
	"strings"
)

// DefaultTopK 相似度检索默认返回条数
const DefaultTopK = 5

// Retriever 把问题向量化后在指定集合内做相似度检索
type Retriever struct {
	embeddings EmbeddingProvider
	store      VectorStore
	topK       int
}

// NewRetriever 创建检索器，topK <= 0 时使用默认值
func NewRetriever(embeddings EmbeddingProvider, store VectorStore, topK int) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{embeddings: embeddings, store: store, topK: topK}
}

// Retrieve 检索与问题最相近的分块，按分数降序返回至多 topK 条。
// 空结果不是错误，由上层决定如何处理。
func (r *Retriever) Retrieve(ctx context.Context, collection, question string, filter Filter) ([]SearchResult, error) {
	if strings.TrimSpace(question) == "" {
		return nil, NewValidationError("问题不能为空")
	}

	vector, err := r.embeddings.Embed(ctx, question)
	if err != nil {
		return nil, err
	}

	return r.store.Query(ctx, collection, vector, r.topK, filter)
}
