package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"aichat-backend/internal/model"
)

func TestAgentService_ListAgents(t *testing.T) {
	client := new(MockAgentsClient)
	svc := NewAgentService(client, 10*time.Second)

	want := []model.Agent{
		{ID: "agent_1", Name: "报表助手"},
		{ID: "agent_2", Name: "翻译助手"},
	}
	client.On("ListAgents", mock.Anything).Return(want, nil)

	got, err := svc.ListAgents(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestAgentService_ListAgentsFailure(t *testing.T) {
	client := new(MockAgentsClient)
	svc := NewAgentService(client, 10*time.Second)

	client.On("ListAgents", mock.Anything).Return(nil, errors.New("401 invalid api key"))

	got, err := svc.ListAgents(context.Background())
	assert.Error(t, err)
	assert.Nil(t, got)
	// 上游错误细节不透传
	assert.NotContains(t, err.Error(), "api key")
}
