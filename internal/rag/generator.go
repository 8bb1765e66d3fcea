package rag

import (
	"context"
	"math"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// Generator 回答生成器抽象，输入拼装好的提示词，输出模型原始文本
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	GetModel() string
}

const generateMaxTokens = 512

// OpenAIGenerator 基于 OpenAI 兼容 chat API 的生成器。
// 通过 BaseURL 可以指向任何兼容端点（Groq 等）。
type OpenAIGenerator struct {
	client *openai.Client
	model  string
}

// NewOpenAIGenerator 创建生成器，API key 缺失视为配置错误
func NewOpenAIGenerator(apiKey, baseURL, model string) (*OpenAIGenerator, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, NewConfigurationError("generation API key 未配置，请设置 APP_AI_GENERATION_API_KEY")
	}
	if model == "" {
		model = "llama-3.1-8b-instant"
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimSuffix(baseURL, "/")
	}

	return &OpenAIGenerator{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}, nil
}

// Generate 单次调用生成回答，不做重试。
// 温度固定为 0 以保证确定性；go-openai 会丢弃零值温度，
// 用最小正数代替字面上的 0。
func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: math.SmallestNonzeroFloat32,
		MaxTokens:   generateMaxTokens,
	})
	if err != nil {
		return "", NewProviderError("generation", "调用生成服务失败", err)
	}
	if len(resp.Choices) == 0 {
		return RefusalAnswer, nil
	}
	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	if answer == "" {
		// 空回答按拒答处理
		return RefusalAnswer, nil
	}
	return answer, nil
}

// GetModel 返回生成模型名
func (g *OpenAIGenerator) GetModel() string { return g.model }
