package handler

import (
	"context"
	"fmt"

	"fitroom/internal/config"
	"fitroom/internal/model"

	openai "github.com/sashabaranov/go-openai"
)

// Responder 生成聊天回复；history 不包含本次用户消息
type Responder interface {
	Reply(ctx context.Context, history []model.ChatMessage, message string) (string, error)
}

// EchoResponder 无需外部服务，开发和测试时使用
type EchoResponder struct{}

func (EchoResponder) Reply(ctx context.Context, history []model.ChatMessage, message string) (string, error) {
	return fmt.Sprintf("You said: %s (turn %d)", message, len(history)/2+1), nil
}

type OpenAIResponder struct {
	client       *openai.Client
	model        string
	systemPrompt string
}

func NewOpenAIResponder(cfg config.OpenAIConfig) *OpenAIResponder {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &OpenAIResponder{
		client:       openai.NewClientWithConfig(clientConfig),
		model:        cfg.Model,
		systemPrompt: cfg.SystemPrompt,
	}
}

func (r *OpenAIResponder) Reply(ctx context.Context, history []model.ChatMessage, message string) (string, error) {
	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    r.model,
		Messages: r.convertMessages(history, message),
	})
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from OpenAI")
	}

	return resp.Choices[0].Message.Content, nil
}

func (r *OpenAIResponder) convertMessages(history []model.ChatMessage, message string) []openai.ChatCompletionMessage {
	result := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	if r.systemPrompt != "" {
		result = append(result, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: r.systemPrompt,
		})
	}

	for _, msg := range history {
		role := openai.ChatMessageRoleUser
		switch msg.Role {
		case model.RoleAssistant:
			role = openai.ChatMessageRoleAssistant
		case model.RoleSystem:
			// 客户端的 system 消息是本地错误提示，不发给模型
			continue
		}

		// 空的 assistant 消息会导致 API 报错
		if msg.Content == "" && role == openai.ChatMessageRoleAssistant {
			continue
		}

		result = append(result, openai.ChatCompletionMessage{
			Role:    role,
			Content: msg.Content,
		})
	}

	return append(result, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: message,
	})
}
