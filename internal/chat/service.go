package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"policyqa/internal/logger"
	"policyqa/internal/metrics"
	"policyqa/internal/rag"
	"policyqa/internal/workspace"
)

// Citation 回答的出处，与送入模型的分块一一对应
type Citation struct {
	DocName    string `json:"doc_name"`
	PageNumber int    `json:"page_number"`
	Snippet    string `json:"snippet"`
}

// Answer 问答结果
type Answer struct {
	Text      string     `json:"answer"`
	Citations []Citation `json:"citations"`
}

// Service 接地问答服务。回答只来自工作区内检索到的分块，
// 上下文中没有答案时严格拒答。
type Service struct {
	workspaces *workspace.Service
	retriever  *rag.Retriever
	generator  rag.Generator
}

// NewService 创建问答服务
func NewService(workspaces *workspace.Service, retriever *rag.Retriever, generator rag.Generator) *Service {
	return &Service{workspaces: workspaces, retriever: retriever, generator: generator}
}

// Ask 回答工作区内的一个问题。
// 状态走向：无文档 -> 固定回答；检索为空 -> 拒答；
// 生成结果等于拒答句 -> 拒答（不带出处）；否则回答 + 逐分块出处。
// 生成服务失败以错误文案作为回答返回，不向 HTTP 层抛异常。
func (s *Service) Ask(ctx context.Context, workspaceID, question string) (*Answer, error) {
	start := time.Now()
	defer func() {
		metrics.ChatDuration.Observe(time.Since(start).Seconds())
	}()

	question = strings.TrimSpace(question)
	if len([]rune(question)) < 3 {
		return nil, rag.NewValidationError("问题至少需要 3 个字符")
	}

	ws, err := s.workspaces.Get(ctx, workspaceID)
	if err != nil {
		return nil, err
	}

	// 没有成员文档：不检索不生成
	if len(ws.DocumentIDs()) == 0 {
		metrics.ChatRequestsTotal.WithLabelValues("no_docs").Inc()
		return &Answer{Text: rag.NoDocumentsAnswer, Citations: []Citation{}}, nil
	}

	filenames, err := s.workspaces.MemberFilenames(ctx, ws)
	if err != nil {
		return nil, err
	}

	results, err := s.retriever.Retrieve(ctx, ws.CollectionName(), question, rag.Filter{DocNames: filenames})
	if err != nil {
		return nil, err
	}
	metrics.RetrievedChunks.Observe(float64(len(results)))

	// 检索为空：直接拒答，不调用生成服务
	if len(results) == 0 {
		metrics.ChatRequestsTotal.WithLabelValues("refused").Inc()
		return &Answer{Text: rag.RefusalAnswer, Citations: []Citation{}}, nil
	}

	prompt := rag.BuildPrompt(question, results)
	text, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		// 生成失败对用户呈现为错误文案，细节只进日志
		logger.Error("生成服务调用失败",
			zap.String("workspace_id", workspaceID),
			zap.Error(err))
		metrics.ChatRequestsTotal.WithLabelValues("provider_error").Inc()
		metrics.GenerationRequestsTotal.WithLabelValues("error").Inc()
		return &Answer{
			Text:      fmt.Sprintf("Error contacting LLM Provider: %v", err),
			Citations: []Citation{},
		}, nil
	}
	metrics.GenerationRequestsTotal.WithLabelValues("ok").Inc()

	// 模型拒答时不给出处
	if rag.IsRefusal(text) {
		metrics.ChatRequestsTotal.WithLabelValues("refused").Inc()
		return &Answer{Text: rag.RefusalAnswer, Citations: []Citation{}}, nil
	}

	// 出处严格镜像送入模型的分块，顺序一致，不重新检索
	citations := make([]Citation, 0, len(results))
	for _, r := range results {
		citations = append(citations, Citation{
			DocName:    r.DocName,
			PageNumber: r.PageNumber,
			Snippet:    strings.TrimSpace(r.Text),
		})
	}

	metrics.ChatRequestsTotal.WithLabelValues("answered").Inc()
	return &Answer{Text: text, Citations: citations}, nil
}
