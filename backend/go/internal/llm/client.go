package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"OpenClaw/backend/go/internal/config"
	"OpenClaw/backend/go/internal/models"

	openai "github.com/meguminnnnnnnnn/go-openai"
)

// Client 是面向 LiteLLM 代理的聊天补全客户端。
// 关键设计：使用 OpenAI 兼容 SDK 指向 LiteLLM，而不是直连各家提供商。
// 真实 API 密钥由 LiteLLM 持有并在内部转发，Agent 进程从不接触它们。
type Client struct {
	client *openai.Client
}

// NewClient 创建一个指向 LiteLLM 代理的客户端。
// 每次模型调用都受 timeoutSecs 约束, 代理挂起不会拖死无头运行。
func NewClient(cfg *config.LLMConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	clientConfig := openai.DefaultConfig(cfg.MasterKey)
	clientConfig.BaseURL = cfg.BaseURL
	clientConfig.HTTPClient = &http.Client{Timeout: timeout}
	return &Client{
		client: openai.NewClientWithConfig(clientConfig),
	}
}

// Chat 以给定模型执行一次带工具的聊天补全，返回助手消息。
// 传输层错误原样返回，由 Agent 循环决定是否切换回退模型。
func (c *Client) Chat(ctx context.Context, model string, messages []openai.ChatCompletionMessage, tools []openai.Tool) (openai.ChatCompletionMessage, error) {
	req := openai.ChatCompletionRequest{
		Model:     model,
		Messages:  messages,
		MaxTokens: 4096,
	}
	if len(tools) > 0 {
		req.Tools = tools
		req.ToolChoice = "auto"
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return openai.ChatCompletionMessage{}, fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return openai.ChatCompletionMessage{}, fmt.Errorf("模型返回了空响应")
	}
	return resp.Choices[0].Message, nil
}

// BuildMessages 把系统提示词、调用方传入的历史和新的用户消息
// 组装为一次补全请求的消息序列。
func BuildMessages(systemPrompt string, history []models.Turn, userMessage string) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	if systemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemPrompt,
		})
	}
	for _, turn := range history {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    turn.Role,
			Content: turn.Content,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: userMessage,
	})
	return messages
}
