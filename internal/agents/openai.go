package agents

import (
	"context"
	"fmt"
	"net/http"

	"aichat-backend/internal/config"
	"aichat-backend/internal/model"
	"aichat-backend/internal/utils"

	openai "github.com/sashabaranov/go-openai"
)

// openaiClient 基于 go-openai 的 Client 实现。thread/message/file/vector store
// 的增删查走 SDK；run 的事件流 SDK 不支持，由 stream.go 直连 SSE 端点。
type openaiClient struct {
	client  *openai.Client
	baseURL string
	apiKey  string
	httpc   *http.Client
}

func NewClient(cfg *config.AgentsConfig) (Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	clientConfig.AssistantVersion = "v2"

	return &openaiClient{
		client:  openai.NewClientWithConfig(clientConfig),
		baseURL: clientConfig.BaseURL,
		apiKey:  cfg.APIKey,
		// 聊天流不限时，超时由各调用方通过 ctx 控制
		httpc: utils.NewHTTPClient(0),
	}, nil
}

func (c *openaiClient) ListAgents(ctx context.Context) ([]model.Agent, error) {
	list, err := c.client.ListAssistants(ctx, nil, nil, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("list assistants: %w", err)
	}

	agents := make([]model.Agent, 0, len(list.Assistants))
	for _, a := range list.Assistants {
		agent := model.Agent{ID: a.ID}
		if a.Name != nil {
			agent.Name = *a.Name
		}
		if a.Description != nil {
			agent.Description = *a.Description
		}
		agents = append(agents, agent)
	}

	return agents, nil
}

func (c *openaiClient) CreateThread(ctx context.Context, vectorStoreIDs []string) (string, error) {
	req := openai.ThreadRequest{}
	if len(vectorStoreIDs) > 0 {
		req.ToolResources = &openai.ToolResourcesRequest{
			FileSearch: &openai.FileSearchToolResourcesRequest{
				VectorStoreIDs: vectorStoreIDs,
			},
		}
	}

	thread, err := c.client.CreateThread(ctx, req)
	if err != nil {
		return "", fmt.Errorf("create thread: %w", err)
	}

	return thread.ID, nil
}

func (c *openaiClient) CreateMessage(ctx context.Context, threadID, role, content string) error {
	_, err := c.client.CreateMessage(ctx, threadID, openai.MessageRequest{
		Role:    role,
		Content: content,
	})
	if err != nil {
		return fmt.Errorf("create message: %w", err)
	}

	return nil
}

func (c *openaiClient) UploadFile(ctx context.Context, fileName string, data []byte) (string, error) {
	file, err := c.client.CreateFileBytes(ctx, openai.FileBytesRequest{
		Name:    fileName,
		Bytes:   data,
		Purpose: openai.PurposeAssistants,
	})
	if err != nil {
		return "", fmt.Errorf("upload file %s: %w", fileName, err)
	}

	return file.ID, nil
}

func (c *openaiClient) CreateVectorStore(ctx context.Context, fileIDs []string, expiryDays int) (string, error) {
	req := openai.VectorStoreRequest{
		FileIDs: fileIDs,
	}
	if expiryDays > 0 {
		// 索引生命周期由过期策略兜底，避免孤儿索引无限滞留
		req.ExpiresAfter = &openai.VectorStoreExpires{
			Anchor: "last_active_at",
			Days:   expiryDays,
		}
	}

	store, err := c.client.CreateVectorStore(ctx, req)
	if err != nil {
		return "", fmt.Errorf("create vector store: %w", err)
	}

	return store.ID, nil
}

func (c *openaiClient) DeleteVectorStore(ctx context.Context, vectorStoreID string) error {
	if _, err := c.client.DeleteVectorStore(ctx, vectorStoreID); err != nil {
		return fmt.Errorf("delete vector store %s: %w", vectorStoreID, err)
	}

	return nil
}
