package service

import (
	"context"
	"encoding/json"

	"aichat-backend/internal/config"
	"aichat-backend/internal/model"
	"aichat-backend/pkg/logger"

	openai "github.com/sashabaranov/go-openai"
)

const recommendSystemPrompt = "You are an AI assistant helping to generate follow-up questions. " +
	"Based on the conversation history, suggest 3 questions the user might want to ask next. " +
	"Make them concise, relevant, and diverse. Return them in JSON format as an array of strings " +
	"under the key \"questions\", with no additional text."

const maxRecommendations = 3

// RecommendService 基于会话历史生成追问建议。纯锦上添花的能力：
// 任何失败都吞掉并退化为空列表，绝不打扰用户。
type RecommendService struct {
	client *openai.Client
	cfg    *config.RecommendConfig
}

func NewRecommendService(cfg *config.RecommendConfig) *RecommendService {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &RecommendService{
		client: openai.NewClientWithConfig(clientConfig),
		cfg:    cfg,
	}
}

// Suggest 返回至多 3 条追问建议，失败时返回空列表
func (s *RecommendService) Suggest(ctx context.Context, history []model.HistoryMessage) []string {
	if len(history) == 0 {
		return []string{}
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	messages := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: recommendSystemPrompt,
	})
	for _, msg := range history {
		role := openai.ChatMessageRoleUser
		if msg.Role == "assistant" {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    role,
			Content: msg.Content,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: "Generate three follow-up question suggestions based on our conversation so far.",
	})

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.cfg.Model,
		Messages:    messages,
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		logger.Warnf("生成推荐问题失败: %v", err)
		return []string{}
	}

	if len(resp.Choices) == 0 {
		return []string{}
	}

	return parseQuestions(resp.Choices[0].Message.Content)
}

func parseQuestions(content string) []string {
	var payload struct {
		Questions []string `json:"questions"`
	}
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		logger.Warnf("解析推荐问题失败: %v", err)
		return []string{}
	}

	if len(payload.Questions) > maxRecommendations {
		payload.Questions = payload.Questions[:maxRecommendations]
	}
	if payload.Questions == nil {
		return []string{}
	}

	return payload.Questions
}
