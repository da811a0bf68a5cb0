package chat

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"

	"aichat-backend/internal/model"
)

func TestRequestBuilder_RejectsEmptySend(t *testing.T) {
	b := NewRequestBuilder("http://localhost:8080/api")

	req, err := b.Build(context.Background(), "", nil, nil, "", "agent_1")

	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Nil(t, req)
}

func TestRequestBuilder_JSONRequest(t *testing.T) {
	b := NewRequestBuilder("http://localhost:8080/api/")

	history := []model.HistoryMessage{{Role: "user", Content: "earlier"}}
	req, err := b.Build(context.Background(), "hello", nil, history, "thread_1", "agent_1")
	assert.NoError(t, err)

	assert.Equal(t, "POST", req.Method)
	assert.Equal(t, "http://localhost:8080/api/chat", req.URL.String())
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
	assert.Equal(t, "text/event-stream", req.Header.Get("Accept"))

	body, _ := io.ReadAll(req.Body)
	var payload model.ChatRequest
	assert.NoError(t, json.Unmarshal(body, &payload))
	assert.Equal(t, "agent_1", payload.AgentID)
	assert.Equal(t, "hello", payload.Message)
	assert.Equal(t, "thread_1", payload.ThreadID)
	assert.Equal(t, history, payload.MessageHistory)
}

func TestRequestBuilder_MultipartRequest(t *testing.T) {
	b := NewRequestBuilder("http://localhost:8080/api")

	files := []AttachedFile{
		{Name: "report.pdf", MimeType: "application/pdf", Data: []byte("%PDF-1.4")},
		{Name: "notes.txt", MimeType: "text/plain", Data: []byte("notes")},
	}
	req, err := b.Build(context.Background(), "summarize these", files, nil, "", "agent_1")
	assert.NoError(t, err)

	assert.Equal(t, "http://localhost:8080/api/chat-with-files", req.URL.String())
	assert.Contains(t, req.Header.Get("Content-Type"), "multipart/form-data")

	assert.NoError(t, req.ParseMultipartForm(1<<20))
	assert.Equal(t, "agent_1", req.FormValue("agentId"))
	assert.Equal(t, "summarize these", req.FormValue("message"))
	assert.Equal(t, "2", req.FormValue("fileCount"))
	// 未提供 threadId 时不携带该字段
	assert.Empty(t, req.FormValue("threadId"))

	parts := req.MultipartForm.File["files"]
	assert.Len(t, parts, 2)
	assert.Equal(t, "report.pdf", parts[0].Filename)
	assert.Equal(t, "application/pdf", parts[0].Header.Get("Content-Type"))

	f, err := parts[1].Open()
	assert.NoError(t, err)
	defer f.Close()
	content, _ := io.ReadAll(f)
	assert.Equal(t, "notes", string(content))
}

// 带文件但正文为空是合法发送
func TestRequestBuilder_FilesOnlySend(t *testing.T) {
	b := NewRequestBuilder("http://localhost:8080/api")

	files := []AttachedFile{{Name: "data.csv", MimeType: "text/csv", Data: []byte("a,b")}}
	req, err := b.Build(context.Background(), "", files, nil, "thread_9", "agent_1")

	assert.NoError(t, err)
	assert.NoError(t, req.ParseMultipartForm(1<<20))
	assert.Empty(t, req.FormValue("message"))
	assert.Equal(t, "thread_9", req.FormValue("threadId"))
}
