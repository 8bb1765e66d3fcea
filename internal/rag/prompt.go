package rag

import "strings"

// RefusalAnswer 规定的拒答句，逐字符固定，不含首尾空白
const RefusalAnswer = "Answer not found in the provided documents."

// NoDocumentsAnswer 工作区没有任何文档时的固定回答
const NoDocumentsAnswer = "This workspace has no documents associated. Upload documents and create a new workspace to ask questions."

// systemRules 严格接地的系统规则，提示词的开头部分
const systemRules = `You are a compliance policy assistant.

You must answer the user's question using ONLY the information provided
in the context below.

STRICT RULES:
- Do NOT use any external knowledge.
- Do NOT use prior training data.
- Do NOT guess, infer, or assume.
- Do NOT add explanations outside the provided text.
- If the answer is NOT explicitly present in the context,
  respond with EXACTLY the following sentence and nothing else:

Answer not found in the provided documents.`

// emptyContextPlaceholder 检索结果为空时的上下文占位符
const emptyContextPlaceholder = "(No relevant context provided)"

// BuildPrompt 拼装严格接地的提示词：规则 + 检索到的上下文 + 问题。
// results 为空时上下文用占位符填充，迫使模型拒答。
func BuildPrompt(question string, results []SearchResult) string {
	contextText := emptyContextPlaceholder
	if len(results) > 0 {
		blocks := make([]string, 0, len(results))
		for _, r := range results {
			blocks = append(blocks, strings.TrimSpace(r.Text))
		}
		contextText = strings.Join(blocks, "\n\n")
	}

	var sb strings.Builder
	sb.WriteString(systemRules)
	sb.WriteString("\n\nContext:\n")
	sb.WriteString(contextText)
	sb.WriteString("\n\nQuestion:\n")
	sb.WriteString(question)
	sb.WriteString("\n")
	return sb.String()
}

// IsRefusal 判断生成结果（去除首尾空白后）是否为规定的拒答句
func IsRefusal(answer string) bool {
	return strings.TrimSpace(answer) == RefusalAnswer
}
