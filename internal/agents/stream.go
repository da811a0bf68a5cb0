package agents

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"aichat-backend/internal/sse"
	"aichat-backend/pkg/logger"
)

// 上游 run 事件流的事件名（assistants v2 流式协议）
const (
	upstreamRunCreated    = "thread.run.created"
	upstreamMessageDelta  = "thread.message.delta"
	upstreamRunCompleted  = "thread.run.completed"
	upstreamRunFailed     = "thread.run.failed"
	upstreamRunCancelled  = "thread.run.cancelled"
	upstreamRunExpired    = "thread.run.expired"
	upstreamErrorEvent    = "error"
	upstreamDoneEvent     = "done"
	streamReadBufferSize  = 4096
)

type runStreamRequest struct {
	AssistantID string `json:"assistant_id"`
	Stream      bool   `json:"stream"`
}

type runStatusPayload struct {
	Status    string `json:"status"`
	LastError *struct {
		Message string `json:"message"`
	} `json:"last_error"`
}

type messageDeltaPayload struct {
	Delta struct {
		Content []struct {
			Type string `json:"type"`
			Text *struct {
				Value string `json:"value"`
			} `json:"text"`
		} `json:"content"`
	} `json:"delta"`
}

// StreamRun 启动一次 run 并把上游 SSE 流归一化为 RunEvent 序列。
// go-openai 未暴露 run 的流式接口，这里直连 REST 端点，
// 用与客户端一致的帧解码器做增量解析。
func (c *openaiClient) StreamRun(ctx context.Context, threadID, agentID string) (<-chan RunEvent, error) {
	body, err := json.Marshal(runStreamRequest{AssistantID: agentID, Stream: true})
	if err != nil {
		return nil, fmt.Errorf("marshal run request: %w", err)
	}

	url := fmt.Sprintf("%s/threads/%s/runs", c.baseURL, threadID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create run request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("OpenAI-Beta", "assistants=v2")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("start run: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("%w: run returned status %d: %s", ErrUpstream, resp.StatusCode, string(respBody))
	}

	events := make(chan RunEvent, 64)
	go c.readRunStream(ctx, resp.Body, events)

	return events, nil
}

func (c *openaiClient) readRunStream(ctx context.Context, body io.ReadCloser, events chan<- RunEvent) {
	defer close(events)
	defer body.Close()

	emit := func(ev RunEvent) bool {
		select {
		case events <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	buf := make([]byte, streamReadBufferSize)
	remainder := ""

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		n, err := body.Read(buf)
		if n > 0 {
			frames, rest := sse.Decode(remainder + string(buf[:n]))
			remainder = rest

			for _, frame := range frames {
				ev, terminal := translateRunFrame(frame)
				if ev != nil && !emit(*ev) {
					return
				}
				if terminal {
					return
				}
			}
		}

		if err != nil {
			if err != io.EOF {
				logger.Errorf("读取 run 事件流失败: %v", err)
				emit(RunEvent{Type: RunEventError, Err: "upstream stream read error"})
				return
			}
			// 输入结束：把仍然开启的帧冲出（见解码器的末尾策略）
			for _, frame := range sse.DecodeFinal(remainder) {
				ev, terminal := translateRunFrame(frame)
				if ev != nil && !emit(*ev) {
					return
				}
				if terminal {
					return
				}
			}
			return
		}
	}
}

// translateRunFrame 把上游帧映射为归一化事件；terminal 表示流到此终结
func translateRunFrame(frame sse.Frame) (*RunEvent, bool) {
	switch frame.Event {
	case upstreamRunCreated:
		var payload runStatusPayload
		if err := json.Unmarshal([]byte(frame.Data), &payload); err != nil {
			logger.Warnf("解析 run 状态失败: %v", err)
			return nil, false
		}
		return &RunEvent{Type: RunEventCreated, Status: payload.Status}, false

	case upstreamMessageDelta:
		var payload messageDeltaPayload
		if err := json.Unmarshal([]byte(frame.Data), &payload); err != nil {
			logger.Warnf("解析消息增量失败: %v", err)
			return nil, false
		}
		text := ""
		for _, part := range payload.Delta.Content {
			if part.Type == "text" && part.Text != nil {
				text += part.Text.Value
			}
		}
		if text == "" {
			return nil, false
		}
		return &RunEvent{Type: RunEventDelta, Text: text}, false

	case upstreamRunCompleted:
		return &RunEvent{Type: RunEventCompleted}, false

	case upstreamRunFailed, upstreamRunCancelled, upstreamRunExpired:
		var payload runStatusPayload
		msg := "run did not complete"
		if err := json.Unmarshal([]byte(frame.Data), &payload); err == nil && payload.LastError != nil {
			msg = payload.LastError.Message
		}
		return &RunEvent{Type: RunEventError, Err: msg}, false

	case upstreamErrorEvent:
		return &RunEvent{Type: RunEventError, Err: frame.Data}, false

	case upstreamDoneEvent:
		return &RunEvent{Type: RunEventDone}, true

	default:
		// 其他生命周期事件（queued/in_progress/step 等）与心跳，忽略
		return nil, false
	}
}
