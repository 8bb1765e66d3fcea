package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	chatHandlers "policyqa/api/handlers/chat"
	documentHandlers "policyqa/api/handlers/documents"
	workspaceHandlers "policyqa/api/handlers/workspaces"
	chatSvc "policyqa/internal/chat"
	"policyqa/internal/config"
	"policyqa/internal/document"
	"policyqa/internal/logger"
	"policyqa/internal/metrics"
	middlewarepkg "policyqa/internal/middleware"
	"policyqa/internal/rag"
	"policyqa/internal/rag/parsers"
	"policyqa/internal/storage"
	workspaceSvc "policyqa/internal/workspace"
)

// SetupRouter 组装依赖并返回 Gin 路由。
// 所有服务在这里构造一次并显式注入，不使用惰性单例。
func SetupRouter(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) (*gin.Engine, error) {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middlewarepkg.RequestIDMiddleware())
	router.Use(RequestLogger())
	router.Use(CORS())
	router.Use(metrics.PrometheusMiddleware())

	// 上游提供者
	embedder, err := rag.NewOpenAIEmbeddingProvider(
		cfg.AI.Embedding.APIKey,
		cfg.AI.Embedding.BaseURL,
		cfg.AI.Embedding.Model,
	)
	if err != nil {
		return nil, err
	}

	cacheTTL, ttlErr := time.ParseDuration(cfg.AI.Embedding.CacheTTL)
	if ttlErr != nil && cfg.AI.Embedding.CacheTTL != "" {
		logger.Warn("embedding 缓存 TTL 配置无效，使用默认值",
			zap.String("cache_ttl", cfg.AI.Embedding.CacheTTL),
			zap.Error(ttlErr))
	}
	embeddings := rag.NewCachedEmbeddingProvider(embedder, redisClient, cacheTTL)

	generator, err := rag.NewOpenAIGenerator(
		cfg.AI.Generation.APIKey,
		cfg.AI.Generation.BaseURL,
		cfg.AI.Generation.Model,
	)
	if err != nil {
		return nil, err
	}

	store, err := rag.NewQdrantStore(rag.QdrantOptions{
		Endpoint:       cfg.RAG.VectorStore.Qdrant.Endpoint,
		APIKey:         cfg.RAG.VectorStore.Qdrant.APIKey,
		Distance:       cfg.RAG.VectorStore.Qdrant.Distance,
		TimeoutSeconds: cfg.RAG.VectorStore.Qdrant.TimeoutSeconds,
	})
	if err != nil {
		return nil, err
	}

	blobs, err := storage.NewFileBlobStore(cfg.Storage.BlobDir)
	if err != nil {
		return nil, fmt.Errorf("初始化文件存储失败: %w", err)
	}

	// 领域服务
	chunker := rag.NewChunker(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	parser := parsers.NewPDFParser()
	documents := document.NewService(db, blobs, parser, chunker, embeddings, store, cfg.RAG.StagingCollection)
	workspaces := workspaceSvc.NewService(db, documents, store, embeddings.Dimension())
	retriever := rag.NewRetriever(embeddings, store, cfg.RAG.TopK)
	chat := chatSvc.NewService(workspaces, retriever, generator)

	// Handler
	documentHandler := documentHandlers.NewHandler(documents)
	workspaceHandler := workspaceHandlers.NewHandler(workspaces)
	chatHandler := chatHandlers.NewHandler(chat)

	// 探针与指标
	router.GET("/health", HealthCheck())
	router.GET("/ready", ReadinessCheck(db))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 业务路由
	limiter := middlewarepkg.NewRateLimiter(nil)
	v1 := router.Group("/api/v1")
	v1.Use(middlewarepkg.RateLimitMiddleware(limiter))
	{
		v1.POST("/documents/upload", documentHandler.Upload)
		v1.GET("/documents", documentHandler.List)
		v1.GET("/documents/:id", documentHandler.Get)

		v1.POST("/workspaces", workspaceHandler.Create)
		v1.GET("/workspaces", workspaceHandler.List)
		v1.GET("/workspaces/:id", workspaceHandler.Get)

		v1.POST("/chat", chatHandler.Ask)
	}

	return router, nil
}
