package rag

import (
	"fmt"
	"strings"
)

// Chunker 文档分块器：把规范化后的页文本切成带重叠的固定大小窗口。
// 同样的输入永远产出同样的 chunk_id 序列，可重复执行。
type Chunker struct {
	ChunkSize    int // 分块大小(字符数)
	ChunkOverlap int // 相邻分块之间的重叠字符数
}

// NewChunker 创建新的分块器
// chunkSize: 每个分块的字符数
// chunkOverlap: 相邻分块之间的重叠字符数
func NewChunker(chunkSize, chunkOverlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = 800 // 默认800字符
	}
	if chunkOverlap < 0 {
		chunkOverlap = 0
	}
	if chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 10 // 重叠不超过10%
	}

	return &Chunker{
		ChunkSize:    chunkSize,
		ChunkOverlap: chunkOverlap,
	}
}

// ChunkID 生成确定性分块标识: {doc_name}_p{page}_c{页内序号}，序号从1开始。
func ChunkID(docName string, pageNumber, localIndex int) string {
	return fmt.Sprintf("%s_p%d_c%d", docName, pageNumber, localIndex)
}

// ChunkPages 对单个文档的页序列分块并校验。
// 校验失败返回 ValidationError，调用方必须放弃整批，不得写入任何向量。
func (c *Chunker) ChunkPages(pages []Page) ([]Chunk, error) {
	chunks := make([]Chunk, 0)
	for _, page := range pages {
		chunks = append(chunks, c.chunkPage(page)...)
	}
	if err := validateChunks(chunks); err != nil {
		return nil, err
	}
	return chunks, nil
}

// chunkPage 对单页文本按固定大小切分，保留重叠
func (c *Chunker) chunkPage(page Page) []Chunk {
	text := normalizeText(page.Text)
	if text == "" {
		return nil
	}

	runes := []rune(text)
	totalLen := len(runes)
	step := c.ChunkSize - c.ChunkOverlap

	chunks := make([]Chunk, 0)
	localIndex := 1

	for start := 0; start < totalLen; start += step {
		end := start + c.ChunkSize
		if end > totalLen {
			end = totalLen
		}

		content := strings.TrimSpace(string(runes[start:end]))
		if content != "" {
			chunks = append(chunks, Chunk{
				ChunkID:    ChunkID(page.DocName, page.PageNumber, localIndex),
				DocName:    page.DocName,
				PageNumber: page.PageNumber,
				Text:       content,
			})
			localIndex++
		}

		// 已经到达末尾,退出
		if end >= totalLen {
			break
		}
	}

	return chunks
}

// validateChunks 入库前的批内校验：
// 非空文本、完整标识字段、批内无重复 chunk_id。
func validateChunks(chunks []Chunk) error {
	seen := make(map[string]struct{}, len(chunks))
	for _, chunk := range chunks {
		if strings.TrimSpace(chunk.Text) == "" {
			return NewValidationError("分块内容为空: %s", chunk.ChunkID)
		}
		if chunk.ChunkID == "" || chunk.DocName == "" || chunk.PageNumber < 1 {
			return NewValidationError("分块缺少标识字段: %q (doc=%q page=%d)",
				chunk.ChunkID, chunk.DocName, chunk.PageNumber)
		}
		if _, ok := seen[chunk.ChunkID]; ok {
			return NewValidationError("分块标识重复: %s", chunk.ChunkID)
		}
		seen[chunk.ChunkID] = struct{}{}
	}
	return nil
}

// normalizeText 规范化文本：合并空白为单个空格
func normalizeText(text string) string {
	return strings.TrimSpace(strings.Join(strings.Fields(text), " "))
}
