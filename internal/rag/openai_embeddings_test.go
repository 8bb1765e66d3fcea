package rag

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"policyqa/internal/metrics"
)

func newTestEmbeddingProvider(t *testing.T, baseURL string) *OpenAIEmbeddingProvider {
	t.Helper()
	provider, err := NewOpenAIEmbeddingProvider("test-key", baseURL, "text-embedding-3-small")
	require.NoError(t, err)
	provider.baseDelay = time.Millisecond
	return provider
}

func writeEmbeddingResponse(w http.ResponseWriter, count int) {
	type item struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	}
	items := make([]item, count)
	for i := range items {
		items[i] = item{Embedding: []float32{float32(i), 0.5}, Index: i}
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"object": "list",
		"data":   items,
		"model":  "text-embedding-3-small",
	})
}

func TestEmbeddingProviderMissingKey(t *testing.T) {
	_, err := NewOpenAIEmbeddingProvider("", "", "")
	require.Error(t, err)
	require.True(t, IsConfiguration(err))
}

func TestEmbedBatchPreservesOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Input []string `json:"input"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		writeEmbeddingResponse(w, len(body.Input))
	}))
	defer server.Close()

	provider := newTestEmbeddingProvider(t, server.URL+"/v1")
	okBefore := testutil.ToFloat64(metrics.EmbeddingRequestsTotal.WithLabelValues("openai", "ok"))

	vectors, err := provider.EmbedBatch(context.Background(), []string{"one", "two", "three"})
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	for i, vec := range vectors {
		require.Equal(t, float32(i), vec[0])
	}

	okAfter := testutil.ToFloat64(metrics.EmbeddingRequestsTotal.WithLabelValues("openai", "ok"))
	require.Equal(t, okBefore+1, okAfter)
}

func TestEmbedRetriesWarmingUpThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":{"message":"model is loading","type":"server_error"}}`))
			return
		}
		writeEmbeddingResponse(w, 1)
	}))
	defer server.Close()

	provider := newTestEmbeddingProvider(t, server.URL+"/v1")

	vec, err := provider.Embed(context.Background(), "hello")
	require.NoError(t, err)
	require.NotEmpty(t, vec)
	require.Equal(t, int32(2), calls.Load())
}

func TestEmbedExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited","type":"rate_limit_error"}}`))
	}))
	defer server.Close()

	provider := newTestEmbeddingProvider(t, server.URL+"/v1")
	errBefore := testutil.ToFloat64(metrics.EmbeddingRequestsTotal.WithLabelValues("openai", "error"))

	_, err := provider.Embed(context.Background(), "hello")
	require.Error(t, err)
	require.True(t, IsProvider(err))
	require.Equal(t, int32(3), calls.Load())

	errAfter := testutil.ToFloat64(metrics.EmbeddingRequestsTotal.WithLabelValues("openai", "error"))
	require.Equal(t, errBefore+1, errAfter)
}

func TestEmbedNonTransientFailsImmediately(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid api key","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	provider := newTestEmbeddingProvider(t, server.URL+"/v1")

	_, err := provider.Embed(context.Background(), "hello")
	require.Error(t, err)
	require.True(t, IsProvider(err))
	require.Equal(t, int32(1), calls.Load())
}
