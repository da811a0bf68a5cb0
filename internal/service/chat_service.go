package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"aichat-backend/internal/agents"
	"aichat-backend/internal/config"
	"aichat-backend/internal/model"
	"aichat-backend/pkg/logger"
)

// relayRun 追踪一次聊天请求对应的上游资源
type relayRun struct {
	id              string // 本次请求的关联 ID，仅用于日志
	threadID        string
	agentID         string
	uploadedFileIDs []string
	vectorStoreID   string
}

func newRelayRun(agentID string) *relayRun {
	return &relayRun{
		id:      uuid.New().String(),
		agentID: agentID,
	}
}

// ChatService 把一次聊天 HTTP 请求翻译为一次云端 run，
// 并把上游事件流改写为本系统自己的 SSE 事件词汇
type ChatService struct {
	client agents.Client
	cfg    *config.Config
}

func NewChatService(cfg *config.Config, client agents.Client) *ChatService {
	return &ChatService{
		client: client,
		cfg:    cfg,
	}
}

// StreamChat 处理不带文件的聊天请求。thread 解析与消息投递在流式响应
// 开始前同步完成：这一阶段的上游失败返回 error，由 handler 以 500 响应
//（此时还没有字节写出）。返回的通道在 done 事件之后关闭。
func (s *ChatService) StreamChat(ctx context.Context, req model.ChatRequest) (<-chan model.StreamEvent, error) {
	run := newRelayRun(req.AgentID)

	// 提供了 threadId 且没有文件时复用已有 thread，否则新建
	if req.ThreadID != "" {
		run.threadID = req.ThreadID
		logger.Infof("[%s] 复用已有 thread: %s", run.id, run.threadID)
	} else {
		threadID, err := s.client.CreateThread(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create thread: %w", err)
		}
		run.threadID = threadID
		logger.Infof("[%s] 创建新 thread: %s", run.id, run.threadID)
	}

	if err := s.client.CreateMessage(ctx, run.threadID, "user", req.Message); err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}

	events := make(chan model.StreamEvent, 100)

	go func() {
		defer close(events)

		// 先把 thread id 发给客户端，正文到达前即可缓存
		events <- model.StartEvent(run.threadID)

		s.relayRunStream(ctx, run, events)
	}()

	return events, nil
}

// StreamChatWithFiles 处理带文件的聊天请求。文件上传与索引构建可能耗时
// 数秒，所有进度都以 status 帧同步给客户端，因此整个流程异步执行。
// 附带文件会强制新建 thread：检索工具资源只能在 thread 创建时挂载。
func (s *ChatService) StreamChatWithFiles(ctx context.Context, req model.ChatRequest, files []model.FilePayload) <-chan model.StreamEvent {
	events := make(chan model.StreamEvent, 100)
	run := newRelayRun(req.AgentID)

	go func() {
		defer close(events)

		events <- model.StatusEvent("Processing file uploads...")

		threadID, ok := s.prepareRetrievalThread(ctx, run, files, events)
		if !ok {
			// 上传或建索引失败：已发出 error 帧，退回普通 thread，
			// 消息的文本部分仍然尽力回答
			fallbackID, err := s.client.CreateThread(ctx, nil)
			if err != nil {
				logger.Errorf("回退创建普通 thread 失败: %v", err)
				events <- model.ErrorEvent("Failed to get response from AI")
				events <- model.DoneEvent()
				return
			}
			threadID = fallbackID
			logger.Infof("[%s] 创建回退 thread: %s", run.id, threadID)
		}
		run.threadID = threadID

		if err := s.client.CreateMessage(ctx, run.threadID, "user", req.Message); err != nil {
			logger.Errorf("投递用户消息失败: %v", err)
			events <- model.ErrorEvent("Failed to get response from AI")
			events <- model.DoneEvent()
			return
		}
		events <- model.StatusEvent("Processing your request...")

		events <- model.StartEvent(run.threadID)

		s.relayRunStream(ctx, run, events)
	}()

	return events
}

// prepareRetrievalThread 顺序上传文件、构建内容索引并创建挂载了
// file_search 工具的 thread。每个里程碑发出一个 status 帧。
// 任一步失败发出 error 帧并返回 ok=false，由调用方走回退路径。
func (s *ChatService) prepareRetrievalThread(ctx context.Context, run *relayRun, files []model.FilePayload, events chan<- model.StreamEvent) (string, bool) {
	// 顺序上传以约束内存与连接占用，文件 ID 顺序与输入一致
	for _, file := range files {
		fileID, err := s.client.UploadFile(ctx, file.Name, file.Data)
		if err != nil {
			logger.Errorf("上传文件 %s 失败: %v", file.Name, err)
			events <- model.ErrorEvent("Failed to process file uploads")
			return "", false
		}
		run.uploadedFileIDs = append(run.uploadedFileIDs, fileID)
		logger.Infof("[%s] 文件上传成功: %s -> %s", run.id, file.Name, fileID)
		events <- model.StatusEvent(fmt.Sprintf("File %s uploaded successfully", file.Name))
	}

	storeID, err := s.client.CreateVectorStore(ctx, run.uploadedFileIDs, s.cfg.Agents.VectorStoreTTL)
	if err != nil {
		logger.Errorf("创建内容索引失败: %v", err)
		events <- model.ErrorEvent("Failed to process file uploads")
		return "", false
	}
	run.vectorStoreID = storeID
	logger.Infof("[%s] 内容索引创建成功: %s", run.id, storeID)
	events <- model.StatusEvent("Vector store created with all files")

	threadID, err := s.client.CreateThread(ctx, []string{storeID})
	if err != nil {
		logger.Errorf("创建检索 thread 失败: %v", err)
		// 失败路径上索引已无法再被任何 thread 引用，按索引自身的 ID 删除
		if delErr := s.client.DeleteVectorStore(ctx, storeID); delErr != nil {
			logger.Warnf("清理孤儿索引失败: %v", delErr)
		}
		run.vectorStoreID = ""
		events <- model.ErrorEvent("Failed to process file uploads")
		return "", false
	}
	logger.Infof("[%s] 创建检索 thread: %s", run.id, threadID)
	events <- model.StatusEvent("Thread created with file search capability")

	return threadID, true
}

// relayRunStream 启动 run 并把上游事件流改写为本系统的事件。
// 对一次请求保证 complete 与 error 恰有其一先于 done 发出，
// 客户端状态机依赖这一点把占位消息移出 sending 状态。
func (s *ChatService) relayRunStream(ctx context.Context, run *relayRun, events chan<- model.StreamEvent) {
	upstream, err := s.client.StreamRun(ctx, run.threadID, run.agentID)
	if err != nil {
		logger.Errorf("[%s] 启动 run 失败: %v", run.id, err)
		events <- model.ErrorEvent("Failed to get response from AI")
		events <- model.DoneEvent()
		return
	}

	fullText := ""
	resolved := false

	for ev := range upstream {
		switch ev.Type {
		case agents.RunEventCreated:
			events <- model.StatusEvent(ev.Status)

		case agents.RunEventDelta:
			if resolved {
				// 终态之后的增量不再下发
				continue
			}
			fullText += ev.Text
			events <- model.DeltaEvent(ev.Text)

		case agents.RunEventCompleted:
			if !resolved {
				resolved = true
				events <- model.CompleteEvent(fullText)
			}

		case agents.RunEventError:
			logger.Errorf("[%s] 上游 run 错误: %s", run.id, ev.Err)
			if !resolved {
				resolved = true
				events <- model.ErrorEvent("An error occurred during processing")
			}

		case agents.RunEventDone:
			if !resolved {
				resolved = true
				events <- model.ErrorEvent("Stream ended unexpectedly")
			}
			events <- model.DoneEvent()
			return
		}
	}

	// 上游未发 done 就断流
	if !resolved {
		events <- model.ErrorEvent("Stream ended unexpectedly")
	}
	events <- model.DoneEvent()
}
