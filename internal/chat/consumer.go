package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"aichat-backend/internal/model"
	"aichat-backend/internal/sse"
	"aichat-backend/internal/utils"
	"aichat-backend/pkg/logger"
)

const readChunkSize = 4096

// Consumer 驱动一次完整的对话往返：组装请求、更新会话状态、
// 消费 SSE 事件流并把增量写回 Session。
type Consumer struct {
	session *Session
	builder *RequestBuilder
	httpc   *http.Client
}

func NewConsumer(session *Session, builder *RequestBuilder) *Consumer {
	return &Consumer{
		session: session,
		builder: builder,
		// 流式响应没有整体超时，靠 ctx 取消
		httpc: utils.NewHTTPClient(0),
	}
}

// Send 发送一条消息并阻塞消费完整个响应流。
// 空发送在任何状态变更之前被拒绝；连接或流中断时
// 占位消息会被置为错误态，已产生的增量保留。
func (c *Consumer) Send(ctx context.Context, text string, files []AttachedFile) error {
	agent := c.session.SelectedAgent()
	if agent == nil {
		return ErrNoAgentSelected
	}

	// 历史在追加本条消息之前截取
	history := c.session.History()
	threadID := c.session.CurrentThreadID()

	req, err := c.builder.Build(ctx, text, files, history, threadID, agent.ID)
	if err != nil {
		return err
	}

	c.session.AppendUserMessage(text, files)
	placeholderID, err := c.session.AppendBotPlaceholder()
	if err != nil {
		return err
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Errorf("聊天请求失败: %v", err)
		_ = c.session.Fail(placeholderID, "Failed to connect to the server")
		return fmt.Errorf("send chat request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logger.Errorf("聊天请求返回异常状态码: %d", resp.StatusCode)
		_ = c.session.Fail(placeholderID, "Failed to connect to the server")
		return fmt.Errorf("chat request failed with status %d", resp.StatusCode)
	}

	return c.consume(ctx, resp.Body, agent.ID, placeholderID)
}

func (c *Consumer) consume(ctx context.Context, body io.Reader, agentID, placeholderID string) error {
	var (
		remainder string
		resolved  bool
		finished  bool
	)

	buf := make([]byte, readChunkSize)
	for !finished {
		n, err := body.Read(buf)
		if n > 0 {
			var frames []sse.Frame
			frames, remainder = sse.Decode(remainder + string(buf[:n]))
			for _, frame := range frames {
				c.handleFrame(frame, agentID, placeholderID, &resolved, &finished)
				if finished {
					break
				}
			}
		}
		if err != nil {
			if ctx.Err() != nil {
				// 调用方主动取消，不再改写会话状态
				return ctx.Err()
			}
			if err == io.EOF {
				for _, frame := range sse.DecodeFinal(remainder) {
					c.handleFrame(frame, agentID, placeholderID, &resolved, &finished)
					if finished {
						break
					}
				}
				if finished {
					return nil
				}
				// 流在 done 之前断开
				if !resolved {
					_ = c.session.Fail(placeholderID, "Connection error")
				}
				return fmt.Errorf("stream ended before done event")
			}
			logger.Errorf("读取响应流失败: %v", err)
			if !resolved {
				_ = c.session.Fail(placeholderID, "Connection error")
			}
			return fmt.Errorf("read stream: %w", err)
		}
	}

	return nil
}

func (c *Consumer) handleFrame(frame sse.Frame, agentID, placeholderID string, resolved, finished *bool) {
	switch frame.Event {
	case string(model.EventStart):
		var payload model.StartPayload
		if err := json.Unmarshal([]byte(frame.Data), &payload); err != nil {
			logger.Warnf("解析 start 事件失败: %v", err)
			return
		}
		c.session.RecordThreadID(agentID, payload.ThreadID)

	case string(model.EventStatus):
		var payload model.StatusPayload
		if err := json.Unmarshal([]byte(frame.Data), &payload); err != nil {
			logger.Warnf("解析 status 事件失败: %v", err)
			return
		}
		logger.Debugf("会话状态更新: %s", payload.Status)

	case string(model.EventDelta):
		if *resolved {
			return
		}
		var payload model.DeltaPayload
		if err := json.Unmarshal([]byte(frame.Data), &payload); err != nil {
			logger.Warnf("解析 delta 事件失败: %v", err)
			return
		}
		_ = c.session.ApplyDelta(placeholderID, payload.Text)

	case string(model.EventComplete):
		var payload model.CompletePayload
		if err := json.Unmarshal([]byte(frame.Data), &payload); err != nil {
			logger.Warnf("解析 complete 事件失败: %v", err)
			return
		}
		_ = c.session.Finalize(placeholderID, payload.FullText)
		*resolved = true

	case string(model.EventError):
		var payload model.ErrorPayload
		if err := json.Unmarshal([]byte(frame.Data), &payload); err != nil {
			logger.Warnf("解析 error 事件失败: %v", err)
			return
		}
		_ = c.session.Fail(placeholderID, payload.Error)
		*resolved = true

	case string(model.EventDone):
		if !*resolved {
			_ = c.session.Fail(placeholderID, "Connection error")
		}
		*finished = true

	case "heartbeat":
		// 保活事件，无需处理

	default:
		logger.Debugf("忽略未知事件类型: %s", frame.Event)
	}
}
