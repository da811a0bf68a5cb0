package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"aichat-backend/internal/config"
	"aichat-backend/internal/model"
	"aichat-backend/internal/service"
	"aichat-backend/internal/sse"
	"aichat-backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

type ChatHandler struct {
	chatService *service.ChatService
	cfg         *config.Config
}

func NewChatHandler(chatService *service.ChatService, cfg *config.Config) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		cfg:         cfg,
	}
}

// StreamChat 处理不带文件的聊天请求（JSON 体），以 SSE 流式返回
func (h *ChatHandler) StreamChat(c *gin.Context) {
	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required parameters"})
		return
	}

	logger.Infof("收到聊天请求 - AgentID: %s, ThreadID: %s", req.AgentID, req.ThreadID)

	// thread 解析在这里同步完成，失败时还未写出任何字节，可以正常返回 500
	events, err := h.chatService.StreamChat(c.Request.Context(), req)
	if err != nil {
		logger.Errorf("聊天请求预处理失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get response from AI"})
		return
	}

	h.streamEvents(c, events)
}

// StreamChatWithFiles 处理带文件上传的聊天请求（multipart 体）。
// 文件内容是原始二进制，所以请求必须用 multipart 编码而不是 JSON。
func (h *ChatHandler) StreamChatWithFiles(c *gin.Context) {
	req, files, ok := h.parseMultipartChat(c)
	if !ok {
		return
	}

	logger.Infof("收到带文件的聊天请求 - AgentID: %s, 文件数: %d", req.AgentID, len(files))

	events := h.chatService.StreamChatWithFiles(c.Request.Context(), req, files)

	h.streamEvents(c, events)
}

// parseMultipartChat 提取 multipart 表单中的聊天字段与文件。
// 校验失败时已写出 400 响应并返回 ok=false。
func (h *ChatHandler) parseMultipartChat(c *gin.Context) (model.ChatRequest, []model.FilePayload, bool) {
	var req model.ChatRequest

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid multipart form"})
		return req, nil, false
	}

	req.AgentID = c.PostForm("agentId")
	req.Message = c.PostForm("message")
	req.ThreadID = c.PostForm("threadId")

	if historyJSON := c.PostForm("messageHistory"); historyJSON != "" {
		if err := json.Unmarshal([]byte(historyJSON), &req.MessageHistory); err != nil {
			logger.Warnf("解析 messageHistory 失败，忽略: %v", err)
		}
	}

	fileHeaders := form.File["files"]

	// agentId 必填；message 仅在带文件时允许为空
	if req.AgentID == "" || (req.Message == "" && len(fileHeaders) == 0) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required parameters"})
		return req, nil, false
	}

	if len(fileHeaders) > h.cfg.Upload.MaxFiles {
		c.JSON(http.StatusBadRequest, gin.H{"error": "too many files"})
		return req, nil, false
	}

	var total int64
	files := make([]model.FilePayload, 0, len(fileHeaders))
	for _, fh := range fileHeaders {
		total += fh.Size
		if total > h.cfg.Upload.MaxTotalSize {
			c.JSON(http.StatusBadRequest, gin.H{"error": "upload size limit exceeded"})
			return req, nil, false
		}

		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read uploaded file"})
			return req, nil, false
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read uploaded file"})
			return req, nil, false
		}

		files = append(files, model.FilePayload{
			Name:     fh.Filename,
			MimeType: fh.Header.Get("Content-Type"),
			Data:     data,
		})
	}

	return req, files, true
}

// streamEvents 把服务层事件写成 SSE 帧，直到通道关闭。
// 空闲期间按配置间隔发送心跳帧，让客户端区分"还在思考"和连接断开。
func (h *ChatHandler) streamEvents(c *gin.Context, events <-chan model.StreamEvent) {
	writer := sse.NewWriter(c.Writer)

	heartbeat := time.NewTicker(h.cfg.Agents.HeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := writer.WriteJSON(string(ev.Type), ev.Payload()); err != nil {
				// 客户端断开后停止写入，避免对已关闭连接持续报错
				logger.Warnf("写入 SSE 失败，停止推送: %v", err)
				return
			}

		case <-heartbeat.C:
			heartbeatData, _ := json.Marshal(gin.H{
				"timestamp": time.Now().Unix(),
			})
			if err := writer.Write("heartbeat", string(heartbeatData)); err != nil {
				logger.Warnf("心跳发送失败: %v", err)
				return
			}

		case <-c.Request.Context().Done():
			return
		}
	}
}
