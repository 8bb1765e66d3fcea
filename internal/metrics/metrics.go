package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// API 指标
var (
	// APIRequestsTotal API 请求总数
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "policyqa_api_requests_total",
			Help: "API 请求总数",
		},
		[]string{"method", "path", "status"},
	)

	// APIRequestDuration API 请求延迟（秒）
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "policyqa_api_request_duration_seconds",
			Help:    "API 请求延迟分布",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// 入库指标
var (
	// DocumentsIngested 成功入库的文档总数
	DocumentsIngested = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "policyqa_documents_ingested_total",
			Help: "成功入库的文档总数",
		},
	)

	// ChunksIndexed 写入向量库的分块总数
	ChunksIndexed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "policyqa_chunks_indexed_total",
			Help: "写入向量库的分块总数",
		},
	)

	// IngestDuration 单文档入库耗时（秒）
	IngestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "policyqa_ingest_duration_seconds",
			Help:    "单文档入库耗时分布",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		},
	)
)

// 工作区指标
var (
	// WorkspacesCreated 创建的工作区总数
	WorkspacesCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "policyqa_workspaces_created_total",
			Help: "创建的工作区总数",
		},
	)

	// ChunksCloned 克隆进工作区集合的分块总数
	ChunksCloned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "policyqa_chunks_cloned_total",
			Help: "克隆进工作区集合的分块总数",
		},
	)
)

// 问答指标
var (
	// ChatRequestsTotal 问答请求总数，outcome 取
	// answered / refused / no_docs / provider_error
	ChatRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "policyqa_chat_requests_total",
			Help: "问答请求总数",
		},
		[]string{"outcome"},
	)

	// ChatDuration 问答请求耗时（秒）
	ChatDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "policyqa_chat_duration_seconds",
			Help:    "问答请求耗时分布",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
	)

	// RetrievedChunks 单次检索返回的分块数
	RetrievedChunks = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "policyqa_retrieved_chunks",
			Help:    "单次检索返回的分块数分布",
			Buckets: []float64{0, 1, 2, 3, 5, 7, 10},
		},
	)
)

// 上游指标
var (
	// EmbeddingRequestsTotal 向量化请求总数
	EmbeddingRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "policyqa_embedding_requests_total",
			Help: "向量化请求总数",
		},
		[]string{"provider", "status"},
	)

	// GenerationRequestsTotal 生成请求总数
	GenerationRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "policyqa_generation_requests_total",
			Help: "生成请求总数",
		},
		[]string{"status"},
	)
)
