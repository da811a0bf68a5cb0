package service

import (
	"context"
	"fmt"
	"time"

	"aichat-backend/internal/agents"
	"aichat-backend/internal/model"
	"aichat-backend/pkg/logger"
)

// AgentService 提供可选 Agent 目录。目录查询带总体超时（缺省 10 秒），
// 这是整个系统中唯一带显式超时的上游调用。
type AgentService struct {
	client  agents.Client
	timeout time.Duration
}

func NewAgentService(client agents.Client, timeout time.Duration) *AgentService {
	return &AgentService{
		client:  client,
		timeout: timeout,
	}
}

func (s *AgentService) ListAgents(ctx context.Context) ([]model.Agent, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	list, err := s.client.ListAgents(ctx)
	if err != nil {
		logger.Errorf("拉取 Agent 目录失败: %v", err)
		// 对外只暴露通用错误，不泄露上游细节
		return nil, fmt.Errorf("failed to fetch agents")
	}

	logger.Infof("拉取到 %d 个 Agent", len(list))
	return list, nil
}
