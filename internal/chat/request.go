package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"

	"aichat-backend/internal/model"
)

// RequestBuilder 把一次发送的全部要素组装为传输请求。
// 不带文件时是 JSON 体；带文件时必须用 multipart（逐文件一个字段），
// 因为上传内容是原始二进制。
type RequestBuilder struct {
	baseURL string
}

func NewRequestBuilder(baseURL string) *RequestBuilder {
	return &RequestBuilder{
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Build 组装聊天请求。text 与 files 同时为空的发送被拒绝，
// 不会发起任何网络调用。threadID 为空表示让中继新建 thread。
func (b *RequestBuilder) Build(ctx context.Context, text string, files []AttachedFile, history []model.HistoryMessage, threadID, agentID string) (*http.Request, error) {
	if text == "" && len(files) == 0 {
		return nil, ErrEmptyMessage
	}

	if len(files) == 0 {
		return b.buildJSON(ctx, text, history, threadID, agentID)
	}

	return b.buildMultipart(ctx, text, files, history, threadID, agentID)
}

func (b *RequestBuilder) buildJSON(ctx context.Context, text string, history []model.HistoryMessage, threadID, agentID string) (*http.Request, error) {
	body, err := json.Marshal(model.ChatRequest{
		AgentID:        agentID,
		Message:        text,
		MessageHistory: history,
		ThreadID:       threadID,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	return req, nil
}

func (b *RequestBuilder) buildMultipart(ctx context.Context, text string, files []AttachedFile, history []model.HistoryMessage, threadID, agentID string) (*http.Request, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fields := [][2]string{
		{"agentId", agentID},
		{"message", text},
		{"fileCount", strconv.Itoa(len(files))},
	}
	if threadID != "" {
		fields = append(fields, [2]string{"threadId", threadID})
	}
	if len(history) > 0 {
		historyJSON, err := json.Marshal(history)
		if err != nil {
			return nil, fmt.Errorf("marshal message history: %w", err)
		}
		fields = append(fields, [2]string{"messageHistory", string(historyJSON)})
	}

	for _, field := range fields {
		if err := writer.WriteField(field[0], field[1]); err != nil {
			return nil, fmt.Errorf("write field %s: %w", field[0], err)
		}
	}

	for _, file := range files {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename="%s"`, file.Name))
		if file.MimeType != "" {
			header.Set("Content-Type", file.MimeType)
		}

		part, err := writer.CreatePart(header)
		if err != nil {
			return nil, fmt.Errorf("create file part %s: %w", file.Name, err)
		}
		if _, err := part.Write(file.Data); err != nil {
			return nil, fmt.Errorf("write file part %s: %w", file.Name, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/chat-with-files", &buf)
	if err != nil {
		return nil, fmt.Errorf("create chat request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "text/event-stream")

	return req, nil
}
