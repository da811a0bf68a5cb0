package service

import (
	"context"

	"github.com/stretchr/testify/mock"

	"aichat-backend/internal/agents"
	"aichat-backend/internal/model"
)

// MockAgentsClient mocks the agents.Client interface
type MockAgentsClient struct {
	mock.Mock
}

func (m *MockAgentsClient) ListAgents(ctx context.Context) ([]model.Agent, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Agent), args.Error(1)
}

func (m *MockAgentsClient) CreateThread(ctx context.Context, vectorStoreIDs []string) (string, error) {
	args := m.Called(ctx, vectorStoreIDs)
	return args.String(0), args.Error(1)
}

func (m *MockAgentsClient) CreateMessage(ctx context.Context, threadID, role, content string) error {
	args := m.Called(ctx, threadID, role, content)
	return args.Error(0)
}

func (m *MockAgentsClient) StreamRun(ctx context.Context, threadID, agentID string) (<-chan agents.RunEvent, error) {
	args := m.Called(ctx, threadID, agentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(<-chan agents.RunEvent), args.Error(1)
}

func (m *MockAgentsClient) UploadFile(ctx context.Context, fileName string, data []byte) (string, error) {
	args := m.Called(ctx, fileName, data)
	return args.String(0), args.Error(1)
}

func (m *MockAgentsClient) CreateVectorStore(ctx context.Context, fileIDs []string, expiryDays int) (string, error) {
	args := m.Called(ctx, fileIDs, expiryDays)
	return args.String(0), args.Error(1)
}

func (m *MockAgentsClient) DeleteVectorStore(ctx context.Context, vectorStoreID string) error {
	args := m.Called(ctx, vectorStoreID)
	return args.Error(0)
}

// runEventStream 把脚本化的事件序列包成只读通道
func runEventStream(events ...agents.RunEvent) <-chan agents.RunEvent {
	ch := make(chan agents.RunEvent, len(events))
	for _, ev := range events {
		ch <- ev
	}
	close(ch)
	return ch
}
