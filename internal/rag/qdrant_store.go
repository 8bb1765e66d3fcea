package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// pointIDNamespace 把 chunk_id 映射到 Qdrant 点 ID 的命名空间。
// Qdrant 只接受 UUID 或无符号整数作为点 ID，chunk_id 本身放在 payload 里。
var pointIDNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

// QdrantPointID 把 chunk_id 确定性地映射为合法的 Qdrant 点 ID
func QdrantPointID(chunkID string) string {
	return uuid.NewSHA1(pointIDNamespace, []byte(chunkID)).String()
}

// QdrantOptions 初始化 Qdrant 向量存储的配置
type QdrantOptions struct {
	Endpoint       string
	APIKey         string
	Distance       string
	TimeoutSeconds int
	HTTPClient     *http.Client
}

// QdrantStore 基于 Qdrant HTTP API 的向量存储实现。
// 集合名逐调用传入：暂存集合与各工作区集合共用同一个实例。
type QdrantStore struct {
	client   *http.Client
	baseURL  string
	apiKey   string
	distance string

	mu      sync.Mutex
	ensured map[string]struct{}
}

// NewQdrantStore 创建 Qdrant 向量存储实例
func NewQdrantStore(opts QdrantOptions) (*QdrantStore, error) {
	baseURL := strings.TrimSpace(opts.Endpoint)
	if baseURL == "" {
		return nil, NewConfigurationError("qdrant endpoint 不能为空")
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	distance := opts.Distance
	if distance == "" {
		distance = "Cosine"
	}

	timeout := opts.TimeoutSeconds
	if timeout <= 0 {
		timeout = 10
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: time.Duration(timeout) * time.Second}
	}

	return &QdrantStore{
		client:   client,
		baseURL:  baseURL,
		apiKey:   opts.APIKey,
		distance: distance,
		ensured:  make(map[string]struct{}),
	}, nil
}

// EnsureCollection 确保集合存在，不存在则按给定维度创建
func (s *QdrantStore) EnsureCollection(ctx context.Context, collection string, dimension int) error {
	if collection == "" {
		return NewValidationError("集合名不能为空")
	}
	if dimension <= 0 {
		return NewValidationError("向量维度必须为正数")
	}

	s.mu.Lock()
	if _, ok := s.ensured[collection]; ok {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	// 先尝试探测集合
	var resp qdrantOperationResponse
	err := s.doRequest(ctx, http.MethodGet, collectionPath(collection, ""), nil, &resp)
	if err == nil && resp.Status == "ok" {
		s.markEnsured(collection)
		return nil
	}

	createReq := createCollectionRequest{
		Vectors: qdrantVectorParams{
			Size:     dimension,
			Distance: s.distance,
		},
	}
	if err := s.doRequest(ctx, http.MethodPut, collectionPath(collection, ""), createReq, &resp); err != nil {
		return err
	}
	if resp.Status != "ok" {
		return NewProviderError("qdrant", fmt.Sprintf("创建集合失败: %s", resp.Error), nil)
	}
	s.markEnsured(collection)
	return nil
}

func (s *QdrantStore) markEnsured(collection string) {
	s.mu.Lock()
	s.ensured[collection] = struct{}{}
	s.mu.Unlock()
}

// Upsert 批量写入分块，点 ID 由 chunk_id 确定性派生，重复写入幂等
func (s *QdrantStore) Upsert(ctx context.Context, collection string, chunks []StoredChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	points := make([]qdrantPoint, 0, len(chunks))
	for _, chunk := range chunks {
		if len(chunk.Embedding) == 0 {
			return NewValidationError("分块 %s 缺少向量", chunk.ChunkID)
		}
		points = append(points, qdrantPoint{
			ID:     QdrantPointID(chunk.ChunkID),
			Vector: chunk.Embedding,
			Payload: map[string]any{
				"chunk_id":    chunk.ChunkID,
				"doc_name":    chunk.DocName,
				"page_number": chunk.PageNumber,
				"text":        chunk.Text,
			},
		})
	}

	req := upsertPointsRequest{Points: points}
	var resp qdrantOperationResponse
	if err := s.doRequest(ctx, http.MethodPut, collectionPath(collection, "/points?wait=true"), req, &resp); err != nil {
		return err
	}
	if resp.Status != "ok" {
		return NewProviderError("qdrant", fmt.Sprintf("upsert 失败: %s", resp.Error), nil)
	}
	return nil
}

// Query 相似度检索，按分数降序返回至多 topK 条
func (s *QdrantStore) Query(ctx context.Context, collection string, vector []float32, topK int, filter Filter) ([]SearchResult, error) {
	if len(vector) == 0 {
		return nil, NewValidationError("查询向量不能为空")
	}
	if topK <= 0 {
		topK = 5
	}

	req := searchRequest{
		Vector:      vector,
		Limit:       topK,
		WithPayload: true,
		Filter:      docNameFilter(filter),
	}

	var resp searchResponse
	if err := s.doRequest(ctx, http.MethodPost, collectionPath(collection, "/points/search"), req, &resp); err != nil {
		return nil, err
	}
	if resp.Status != "ok" {
		return nil, NewProviderError("qdrant", fmt.Sprintf("search 失败: %s", resp.Error), nil)
	}

	results := make([]SearchResult, 0, len(resp.Result))
	for _, item := range resp.Result {
		results = append(results, SearchResult{
			ChunkID:    stringFromPayload(item.Payload, "chunk_id"),
			DocName:    stringFromPayload(item.Payload, "doc_name"),
			PageNumber: toInt(item.Payload["page_number"]),
			Text:       stringFromPayload(item.Payload, "text"),
			Score:      item.Score,
		})
	}
	return results, nil
}

// scrollPageSize 滚动读取的批大小
const scrollPageSize = 256

// Get 按过滤条件滚动读取全部分块，携带向量，供跨集合克隆使用
func (s *QdrantStore) Get(ctx context.Context, collection string, filter Filter) ([]StoredChunk, error) {
	var chunks []StoredChunk
	var offset any

	for {
		req := scrollRequest{
			Limit:       scrollPageSize,
			WithPayload: true,
			WithVector:  true,
			Filter:      docNameFilter(filter),
			Offset:      offset,
		}

		var resp scrollResponse
		if err := s.doRequest(ctx, http.MethodPost, collectionPath(collection, "/points/scroll"), req, &resp); err != nil {
			return nil, err
		}
		if resp.Status != "ok" {
			return nil, NewProviderError("qdrant", fmt.Sprintf("scroll 失败: %s", resp.Error), nil)
		}

		for _, point := range resp.Result.Points {
			chunks = append(chunks, StoredChunk{
				ChunkID:    stringFromPayload(point.Payload, "chunk_id"),
				DocName:    stringFromPayload(point.Payload, "doc_name"),
				PageNumber: toInt(point.Payload["page_number"]),
				Text:       stringFromPayload(point.Payload, "text"),
				Embedding:  point.Vector,
			})
		}

		if resp.Result.NextPageOffset == nil {
			break
		}
		offset = resp.Result.NextPageOffset
	}

	return chunks, nil
}

// DeleteByDocument 删除指定文档的全部分块
func (s *QdrantStore) DeleteByDocument(ctx context.Context, collection string, docName string) error {
	if docName == "" {
		return nil
	}

	req := deletePointsRequest{Filter: docNameFilter(Filter{DocNames: []string{docName}})}
	var resp qdrantOperationResponse
	if err := s.doRequest(ctx, http.MethodPost, collectionPath(collection, "/points/delete?wait=true"), req, &resp); err != nil {
		return err
	}
	if resp.Status != "ok" {
		return NewProviderError("qdrant", fmt.Sprintf("delete 失败: %s", resp.Error), nil)
	}
	return nil
}

// Count 统计集合内的分块数量
func (s *QdrantStore) Count(ctx context.Context, collection string) (int, error) {
	req := countRequest{Exact: true}
	var resp countResponse
	if err := s.doRequest(ctx, http.MethodPost, collectionPath(collection, "/points/count"), req, &resp); err != nil {
		return 0, err
	}
	if resp.Status != "ok" {
		return 0, NewProviderError("qdrant", fmt.Sprintf("count 失败: %s", resp.Error), nil)
	}
	return int(resp.Result.Count), nil
}

// --- 内部辅助 ---

func collectionPath(collection, path string) string {
	return fmt.Sprintf("/collections/%s%s", url.PathEscape(collection), path)
}

func (s *QdrantStore) doRequest(ctx context.Context, method, path string, payload any, dest any) error {
	var bodyReader *bytes.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("序列化请求失败: %w", err)
		}
		bodyReader = bytes.NewReader(buf)
	} else {
		bodyReader = bytes.NewReader(nil)
	}

	fullURL := s.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return NewProviderError("qdrant", "请求失败", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return NewNotFoundError("qdrant 资源", path)
	}
	if resp.StatusCode >= 400 {
		var errBody map[string]any
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		return NewProviderError("qdrant", fmt.Sprintf("API 错误: %v (%d)", errBody["status"], resp.StatusCode), nil)
	}

	if dest == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}

// docNameFilter 构造 doc_name 属于给定集合的过滤条件
func docNameFilter(filter Filter) *qdrantFilter {
	if filter.IsZero() {
		return nil
	}
	values := make([]any, 0, len(filter.DocNames))
	for _, name := range filter.DocNames {
		values = append(values, name)
	}
	return &qdrantFilter{
		Must: []fieldCondition{{
			Key:   "doc_name",
			Match: fieldMatch{Any: values},
		}},
	}
}

func stringFromPayload(payload map[string]any, key string) string {
	if payload == nil {
		return ""
	}
	if v, ok := payload[key]; ok {
		return fmt.Sprint(v)
	}
	return ""
}

func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float32:
		return int(n)
	case float64:
		return int(n)
	case string:
		var iv int
		fmt.Sscanf(n, "%d", &iv)
		return iv
	default:
		return 0
	}
}

// --- Qdrant API payloads ---

type qdrantVectorParams struct {
	Size     int    `json:"size"`
	Distance string `json:"distance"`
}

type createCollectionRequest struct {
	Vectors qdrantVectorParams `json:"vectors"`
}

type qdrantPoint struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

type upsertPointsRequest struct {
	Points []qdrantPoint `json:"points"`
}

type fieldCondition struct {
	Key   string     `json:"key"`
	Match fieldMatch `json:"match"`
}

type fieldMatch struct {
	Value any   `json:"value,omitempty"`
	Any   []any `json:"any,omitempty"`
}

type qdrantFilter struct {
	Must []fieldCondition `json:"must,omitempty"`
}

type deletePointsRequest struct {
	Points []string      `json:"points,omitempty"`
	Filter *qdrantFilter `json:"filter,omitempty"`
}

type searchRequest struct {
	Vector      []float32     `json:"vector"`
	Limit       int           `json:"limit"`
	WithPayload bool          `json:"with_payload"`
	Filter      *qdrantFilter `json:"filter,omitempty"`
}

type searchResponse struct {
	Status string              `json:"status"`
	Result []searchResultEntry `json:"result"`
	Error  string              `json:"error"`
}

type searchResultEntry struct {
	ID      any            `json:"id"`
	Score   float64        `json:"score"`
	Payload map[string]any `json:"payload"`
}

type scrollRequest struct {
	Limit       int           `json:"limit"`
	WithPayload bool          `json:"with_payload"`
	WithVector  bool          `json:"with_vector"`
	Filter      *qdrantFilter `json:"filter,omitempty"`
	Offset      any           `json:"offset,omitempty"`
}

type scrollResponse struct {
	Status string `json:"status"`
	Result struct {
		Points         []scrollPoint `json:"points"`
		NextPageOffset any           `json:"next_page_offset"`
	} `json:"result"`
	Error string `json:"error"`
}

type scrollPoint struct {
	ID      any            `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

type qdrantOperationResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

type countRequest struct {
	Exact  bool          `json:"exact"`
	Filter *qdrantFilter `json:"filter,omitempty"`
}

type countResponse struct {
	Status string `json:"status"`
	Result struct {
		Count int64 `json:"count"`
	} `json:"result"`
	Error string `json:"error"`
}
