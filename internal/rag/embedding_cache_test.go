package rag

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type countingProvider struct {
	calls atomic.Int32
}

func (p *countingProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (p *countingProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	p.calls.Add(1)
	res := make([][]float32, len(texts))
	for i, txt := range texts {
		res[i] = []float32{float32(len(txt))}
	}
	return res, nil
}

func (p *countingProvider) GetModel() string        { return "test-model" }
func (p *countingProvider) GetProviderName() string { return "test-provider" }
func (p *countingProvider) Dimension() int          { return 1 }

func TestCachedEmbeddingLocalHit(t *testing.T) {
	inner := &countingProvider{}
	cached := NewCachedEmbeddingProvider(inner, nil, time.Hour)

	ctx := context.Background()
	first, err := cached.Embed(ctx, "hello")
	require.NoError(t, err)

	second, err := cached.Embed(ctx, "hello")
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, int32(1), inner.calls.Load())
}

func TestCachedEmbeddingBatchMergesMisses(t *testing.T) {
	inner := &countingProvider{}
	cached := NewCachedEmbeddingProvider(inner, nil, time.Hour)

	ctx := context.Background()
	_, err := cached.Embed(ctx, "aa")
	require.NoError(t, err)

	vectors, err := cached.EmbedBatch(ctx, []string{"aa", "bbb", "cccc"})
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	// 命中一条，未命中的两条合并成一次下游调用
	require.Equal(t, int32(2), inner.calls.Load())
	require.Equal(t, []float32{2}, vectors[0])
	require.Equal(t, []float32{3}, vectors[1])
	require.Equal(t, []float32{4}, vectors[2])
}

func TestCachedEmbeddingPassthroughMetadata(t *testing.T) {
	inner := &countingProvider{}
	cached := NewCachedEmbeddingProvider(inner, nil, 0)

	require.Equal(t, "test-model", cached.GetModel())
	require.Equal(t, "test-provider", cached.GetProviderName())
	require.Equal(t, 1, cached.Dimension())
}
