package rag

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// CachedEmbeddingProvider 带缓存的向量化装饰器：
// 本地 sync.Map 作为 L1，可选 Redis 作为 L2。
// 相同模型下相同文本的向量是确定的，可以安全复用。
type CachedEmbeddingProvider struct {
	inner        EmbeddingProvider
	redis        *redis.Client
	localCache   sync.Map
	prefix       string
	ttl          time.Duration
	maxLocalSize int64
	localCount   atomic.Int64
}

// cachedEmbedding 缓存的向量
type cachedEmbedding struct {
	Vector    []float32 `json:"vector"`
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewCachedEmbeddingProvider 创建向量缓存装饰器。
// redisClient 为 nil 时退化为纯本地缓存。
func NewCachedEmbeddingProvider(inner EmbeddingProvider, redisClient *redis.Client, ttl time.Duration) *CachedEmbeddingProvider {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour // 默认 7 天
	}
	return &CachedEmbeddingProvider{
		inner:        inner,
		redis:        redisClient,
		prefix:       "emb:",
		ttl:          ttl,
		maxLocalSize: 10000, // 本地最多缓存 1 万条
	}
}

// Embed 单条向量化，带缓存
func (c *CachedEmbeddingProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch 批量向量化：命中的直接复用，未命中的合并成一次下游调用。
// 返回顺序与输入一致。
func (c *CachedEmbeddingProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	result := make([][]float32, len(texts))
	missTexts := make([]string, 0)
	missIndices := make([]int, 0)

	for i, text := range texts {
		if vec, ok := c.get(ctx, text); ok {
			result[i] = vec
			continue
		}
		missTexts = append(missTexts, text)
		missIndices = append(missIndices, i)
	}

	if len(missTexts) > 0 {
		vectors, err := c.inner.EmbedBatch(ctx, missTexts)
		if err != nil {
			return nil, err
		}
		for j, vec := range vectors {
			result[missIndices[j]] = vec
			c.set(ctx, missTexts[j], vec)
		}
	}

	return result, nil
}

// get 逐级读取缓存：先本地后 Redis
func (c *CachedEmbeddingProvider) get(ctx context.Context, text string) ([]float32, bool) {
	key := c.makeKey(text)

	if val, ok := c.localCache.Load(key); ok {
		return val.(*cachedEmbedding).Vector, true
	}

	if c.redis != nil {
		data, err := c.redis.Get(ctx, key).Bytes()
		if err == nil {
			var cached cachedEmbedding
			if json.Unmarshal(data, &cached) == nil {
				c.setLocal(key, &cached)
				return cached.Vector, true
			}
		}
	}

	return nil, false
}

// set 写入缓存（本地 + Redis）
func (c *CachedEmbeddingProvider) set(ctx context.Context, text string, vector []float32) {
	key := c.makeKey(text)
	cached := &cachedEmbedding{
		Vector:    vector,
		Model:     c.inner.GetModel(),
		CreatedAt: time.Now(),
	}

	c.setLocal(key, cached)

	if c.redis != nil {
		if data, err := json.Marshal(cached); err == nil {
			// Redis 写入失败不影响主流程
			_ = c.redis.Set(ctx, key, data, c.ttl).Err()
		}
	}
}

// setLocal 写入本地缓存，超过容量后不再收录新条目
func (c *CachedEmbeddingProvider) setLocal(key string, cached *cachedEmbedding) {
	if c.localCount.Load() >= c.maxLocalSize {
		return
	}
	if _, loaded := c.localCache.LoadOrStore(key, cached); !loaded {
		c.localCount.Add(1)
	}
}

// makeKey 缓存键 = 前缀 + sha256(model + text)
func (c *CachedEmbeddingProvider) makeKey(text string) string {
	h := sha256.New()
	h.Write([]byte(c.inner.GetModel()))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return c.prefix + hex.EncodeToString(h.Sum(nil))
}

// GetModel 透传底层模型名
func (c *CachedEmbeddingProvider) GetModel() string { return c.inner.GetModel() }

// GetProviderName 透传底层提供商名称
func (c *CachedEmbeddingProvider) GetProviderName() string { return c.inner.GetProviderName() }

// Dimension 透传底层向量维度
func (c *CachedEmbeddingProvider) Dimension() int { return c.inner.Dimension() }
