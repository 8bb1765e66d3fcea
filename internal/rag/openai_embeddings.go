package rag

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"policyqa/internal/metrics"
)

const (
	// embedMaxAttempts 瞬时失败(限流/模型预热)最多尝试次数
	embedMaxAttempts = 3
	// embedBaseDelay 重试间隔基数，按尝试次数线性递增
	embedBaseDelay = 500 * time.Millisecond
	// embedBatchLimit OpenAI API 限制每次请求最多2048个输入
	embedBatchLimit = 2048
)

// OpenAIEmbeddingProvider OpenAI 兼容接口的向量化服务提供者。
// BaseURL 可指向任何 OpenAI 兼容网关。
type OpenAIEmbeddingProvider struct {
	client      *openai.Client
	model       string // 默认使用 text-embedding-3-small
	maxAttempts int
	baseDelay   time.Duration
}

// NewOpenAIEmbeddingProvider 创建向量化提供者。
// 凭证缺失立即返回 ConfigurationError，而不是等到调用时才失败。
func NewOpenAIEmbeddingProvider(apiKey, baseURL, model string) (*OpenAIEmbeddingProvider, error) {
	if apiKey == "" {
		return nil, NewConfigurationError("embedding API key 未配置，请设置 APP_AI_EMBEDDING_API_KEY")
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	// 如果未指定模型,使用默认模型
	if model == "" {
		model = string(openai.SmallEmbedding3)
	}

	return &OpenAIEmbeddingProvider{
		client:      openai.NewClientWithConfig(cfg),
		model:       model,
		maxAttempts: embedMaxAttempts,
		baseDelay:   embedBaseDelay,
	}, nil
}

// Embed 将单条文本转换为向量：批量调用取第 0 个元素
func (p *OpenAIEmbeddingProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, NewValidationError("向量化文本不能为空")
	}

	vectors, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, NewProviderError(p.GetProviderName(), "embedding 服务返回空向量", nil)
	}
	return vectors[0], nil
}

// EmbedBatch 批量向量化文本，保持输入顺序与长度一致
func (p *OpenAIEmbeddingProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	// 超过API单次输入上限时分批处理
	allEmbeddings := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += embedBatchLimit {
		end := i + embedBatchLimit
		if end > len(texts) {
			end = len(texts)
		}

		embeddings, err := p.embedWithRetry(ctx, texts[i:end])
		if err != nil {
			return nil, err
		}
		allEmbeddings = append(allEmbeddings, embeddings...)
	}

	return allEmbeddings, nil
}

// embedWithRetry 对瞬时失败做有界重试，间隔按尝试次数线性递增。
// 重试耗尽后返回携带上游详情的 ProviderError。
func (p *OpenAIEmbeddingProvider) embedWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	var lastErr error

	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: texts,
			Model: openai.EmbeddingModel(p.model),
		})
		if err == nil {
			if len(resp.Data) != len(texts) {
				metrics.EmbeddingRequestsTotal.WithLabelValues(p.GetProviderName(), "error").Inc()
				return nil, NewProviderError(p.GetProviderName(),
					"embedding 服务返回向量数量不匹配", nil)
			}
			embeddings := make([][]float32, len(resp.Data))
			for i, data := range resp.Data {
				embeddings[i] = data.Embedding
			}
			metrics.EmbeddingRequestsTotal.WithLabelValues(p.GetProviderName(), "ok").Inc()
			return embeddings, nil
		}

		lastErr = err
		if !isTransientUpstreamError(err) {
			metrics.EmbeddingRequestsTotal.WithLabelValues(p.GetProviderName(), "error").Inc()
			return nil, NewProviderError(p.GetProviderName(), "调用 embedding 服务失败", err)
		}
		if attempt < p.maxAttempts {
			select {
			case <-time.After(time.Duration(attempt) * p.baseDelay):
			case <-ctx.Done():
				return nil, NewProviderError(p.GetProviderName(), "embedding 请求被取消", ctx.Err())
			}
		}
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(p.GetProviderName(), "error").Inc()
	return nil, NewProviderError(p.GetProviderName(), "embedding 重试耗尽", lastErr)
}

// isTransientUpstreamError 判断是否为可重试的瞬时失败：
// 限流(429)、服务端错误(5xx)、模型预热中，以及超时。
func isTransientUpstreamError(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500 {
			return true
		}
		msg := strings.ToLower(apiErr.Message)
		return strings.Contains(msg, "loading") || strings.Contains(msg, "warming up")
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == 429 || reqErr.HTTPStatusCode >= 500
	}

	// 网络层超时视为瞬时失败
	return errors.Is(err, context.DeadlineExceeded)
}

// Dimension 获取向量维度
func (p *OpenAIEmbeddingProvider) Dimension() int {
	// text-embedding-3-small: 1536维
	// text-embedding-3-large: 3072维
	switch p.model {
	case string(openai.LargeEmbedding3):
		return 3072
	default:
		return 1536
	}
}

// GetModel 获取当前使用的模型
func (p *OpenAIEmbeddingProvider) GetModel() string {
	return p.model
}

// GetProviderName 获取提供商名称
func (p *OpenAIEmbeddingProvider) GetProviderName() string {
	return "openai"
}
