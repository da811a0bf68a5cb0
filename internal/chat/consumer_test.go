package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

// sseServer 按脚本回放一组 (event, data) 帧
func sseServer(t *testing.T, frames [][2]string, sendDone bool) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher, ok := w.(http.Flusher)
		assert.True(t, ok)

		for _, frame := range frames {
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", frame[0], frame[1])
			flusher.Flush()
		}
		if sendDone {
			fmt.Fprint(w, "event: done\ndata: {}\n\n")
			flusher.Flush()
		}
	}))
}

func newTestConsumer(serverURL string) (*Consumer, *Session) {
	session := NewSession()
	session.SelectAgent(testAgent("agent_1"))
	consumer := NewConsumer(session, NewRequestBuilder(serverURL))
	return consumer, session
}

func TestConsumer_FullRoundTrip(t *testing.T) {
	server := sseServer(t, [][2]string{
		{"start", `{"threadId":"thread_42"}`},
		{"status", `{"status":"Processing your request..."}`},
		{"delta", `{"text":"你好"}`},
		{"delta", `{"text":"，世界"}`},
		{"complete", `{"fullText":"你好，世界"}`},
	}, true)
	defer server.Close()

	consumer, session := newTestConsumer(server.URL)

	err := consumer.Send(context.Background(), "打个招呼", nil)
	assert.NoError(t, err)

	msgs := session.Messages()
	assert.Len(t, msgs, 2)
	assert.Equal(t, "打个招呼", msgs[0].Content)
	assert.True(t, msgs[0].IsUserMessage)

	// complete 的权威全文覆盖增量累积
	assert.Equal(t, "你好，世界", msgs[1].Content)
	assert.Equal(t, StatusSent, msgs[1].Status)
	assert.False(t, session.HasPending())

	// start 帧里的 thread id 被缓存，下一次发送复用
	assert.Equal(t, "thread_42", session.CurrentThreadID())
}

func TestConsumer_ErrorFrame(t *testing.T) {
	server := sseServer(t, [][2]string{
		{"start", `{"threadId":"thread_1"}`},
		{"delta", `{"text":"partial"}`},
		{"error", `{"error":"An error occurred during processing"}`},
	}, true)
	defer server.Close()

	consumer, session := newTestConsumer(server.URL)

	err := consumer.Send(context.Background(), "hi", nil)
	assert.NoError(t, err)

	msgs := session.Messages()
	assert.Equal(t, StatusError, msgs[1].Status)
	assert.Equal(t, "An error occurred during processing", msgs[1].Content)
	assert.False(t, session.HasPending())
}

func TestConsumer_MalformedFrameSkipped(t *testing.T) {
	server := sseServer(t, [][2]string{
		{"start", `{"threadId":"thread_1"}`},
		{"delta", `{not json`},
		{"delta", `{"text":"ok"}`},
		{"complete", `{"fullText":"ok"}`},
	}, true)
	defer server.Close()

	consumer, session := newTestConsumer(server.URL)

	err := consumer.Send(context.Background(), "hi", nil)
	assert.NoError(t, err)

	msgs := session.Messages()
	assert.Equal(t, "ok", msgs[1].Content)
	assert.Equal(t, StatusSent, msgs[1].Status)
}

func TestConsumer_UnknownEventIgnored(t *testing.T) {
	server := sseServer(t, [][2]string{
		{"start", `{"threadId":"thread_1"}`},
		{"heartbeat", `{"timestamp":1700000000}`},
		{"telemetry", `{"foo":"bar"}`},
		{"complete", `{"fullText":"done"}`},
	}, true)
	defer server.Close()

	consumer, session := newTestConsumer(server.URL)

	err := consumer.Send(context.Background(), "hi", nil)
	assert.NoError(t, err)
	assert.Equal(t, StatusSent, session.Messages()[1].Status)
}

// 流在 done 之前断开：占位消息转为错误态，已收增量保留语义由
// Fail 覆盖为错误文案（不静默丢弃消息本身）
func TestConsumer_DisconnectBeforeDone(t *testing.T) {
	server := sseServer(t, [][2]string{
		{"start", `{"threadId":"thread_1"}`},
		{"delta", `{"text":"partial"}`},
	}, false)
	defer server.Close()

	consumer, session := newTestConsumer(server.URL)

	err := consumer.Send(context.Background(), "hi", nil)
	assert.Error(t, err)

	msgs := session.Messages()
	assert.Equal(t, StatusError, msgs[1].Status)
	assert.Equal(t, "Connection error", msgs[1].Content)
	assert.False(t, session.HasPending())
}

func TestConsumer_ServerErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"Failed to get response from AI"}`, http.StatusInternalServerError)
	}))
	defer server.Close()

	consumer, session := newTestConsumer(server.URL)

	err := consumer.Send(context.Background(), "hi", nil)
	assert.Error(t, err)

	msgs := session.Messages()
	assert.Equal(t, StatusError, msgs[1].Status)
	assert.Equal(t, "Failed to connect to the server", msgs[1].Content)
}

// 空发送在任何状态变更之前被拒绝
func TestConsumer_EmptySendRejected(t *testing.T) {
	consumer, session := newTestConsumer("http://localhost:0")

	err := consumer.Send(context.Background(), "", nil)
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Empty(t, session.Messages())
	assert.False(t, session.HasPending())
}

func TestConsumer_NoAgentSelected(t *testing.T) {
	session := NewSession()
	consumer := NewConsumer(session, NewRequestBuilder("http://localhost:0"))

	err := consumer.Send(context.Background(), "hi", nil)
	assert.ErrorIs(t, err, ErrNoAgentSelected)
	assert.Empty(t, session.Messages())
}

func TestConsumer_ThreadReuseAcrossSends(t *testing.T) {
	var gotThreadIDs []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ThreadID string `json:"threadId"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		gotThreadIDs = append(gotThreadIDs, req.ThreadID)

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event: start\ndata: {\"threadId\":\"thread_7\"}\n\n")
		fmt.Fprint(w, "event: complete\ndata: {\"fullText\":\"ok\"}\n\n")
		fmt.Fprint(w, "event: done\ndata: {}\n\n")
	}))
	defer server.Close()

	consumer, _ := newTestConsumer(server.URL)

	assert.NoError(t, consumer.Send(context.Background(), "first", nil))
	assert.NoError(t, consumer.Send(context.Background(), "second", nil))

	// 首次发送不带 thread id，第二次复用 start 帧返回的 id
	assert.Equal(t, []string{"", "thread_7"}, gotThreadIDs)
}
