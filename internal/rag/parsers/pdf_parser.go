package parsers

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/dslipak/pdf"

	"policyqa/internal/rag"
)

// PDFParser PDF 文件解析器，逐页抽取文本
type PDFParser struct{}

// NewPDFParser 创建 PDF 解析器
func NewPDFParser() *PDFParser {
	return &PDFParser{}
}

// ParsePages 解析 PDF 并按页返回文本。页码取物理页号（从 1 开始），
// 无法抽取文本的页被跳过，页号不重排。
func (p *PDFParser) ParsePages(reader io.Reader, docName string) ([]rag.Page, error) {
	// pdf.NewReader 需要 ReaderAt，先整体读入
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("读取 PDF 内容失败: %w", err)
	}

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, rag.NewValidationError("打开 PDF 失败: %v", err)
	}

	numPages := r.NumPage()
	pages := make([]rag.Page, 0, numPages)

	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// 单页解析失败不中断整个文档
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}

		pages = append(pages, rag.Page{
			DocName:    docName,
			PageNumber: i,
			Text:       text,
		})
	}

	if len(pages) == 0 {
		return nil, rag.NewValidationError("PDF 内容为空或无法解析文本")
	}

	return pages, nil
}

// SupportedExtensions 支持的文件扩展名
func (p *PDFParser) SupportedExtensions() []string {
	return []string{".pdf"}
}

// CanParse 检查是否可以解析指定扩展名的文件
func (p *PDFParser) CanParse(extension string) bool {
	extension = strings.ToLower(extension)
	for _, ext := range p.SupportedExtensions() {
		if ext == extension {
			return true
		}
	}
	return false
}
