package rag

// Page 是加载器产出的单页文本，分块器的输入。页码从 1 开始。
type Page struct {
	DocName    string
	PageNumber int
	Text       string
}

// Chunk is a contiguous slice of one page, the unit of embedding and retrieval.
// ChunkID 由 (doc_name, page_number, 页内序号) 确定性生成，全局唯一。
type Chunk struct {
	ChunkID    string
	DocName    string
	PageNumber int
	Text       string
	Embedding  []float32
}

// StoredChunk 描述向量存储中的一条记录，Get 返回时携带向量，供工作区克隆使用。
type StoredChunk struct {
	ChunkID    string
	DocName    string
	PageNumber int
	Text       string
	Embedding  []float32
}

// SearchResult 描述一次相似度检索的返回结果。
type SearchResult struct {
	ChunkID    string  `json:"chunk_id"`
	DocName    string  `json:"doc_name"`
	PageNumber int     `json:"page_number"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
}

// Filter 元数据过滤条件：限定 doc_name 属于给定集合。空 DocNames 表示不过滤。
type Filter struct {
	DocNames []string
}

// IsZero 判断过滤条件是否为空
func (f Filter) IsZero() bool { return len(f.DocNames) == 0 }
