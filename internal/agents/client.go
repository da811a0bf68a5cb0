package agents

import (
	"context"
	"errors"

	"aichat-backend/internal/model"
)

var (
	ErrMissingAPIKey = errors.New("agents api key is required")
	ErrUpstream      = errors.New("upstream agent service error")
)

// RunEventType 上游 run 事件流在本系统内的归一化类型
type RunEventType string

const (
	RunEventCreated   RunEventType = "created"   // run 已创建，携带上游状态
	RunEventDelta     RunEventType = "delta"     // 增量文本片段
	RunEventCompleted RunEventType = "completed" // run 正常结束
	RunEventError     RunEventType = "error"     // 上游错误
	RunEventDone      RunEventType = "done"      // 流终结信号
)

// RunEvent 每个类型只使用自己的字段
type RunEvent struct {
	Type   RunEventType
	Status string // created
	Text   string // delta
	Err    string // error
}

// Client 云端 Agent 服务（thread/run/message 抽象）的访问契约。
// 中继服务只依赖这个接口，测试中用 mock 替换。
type Client interface {
	// ListAgents 拉取可用 Agent 目录，调用方负责超时控制
	ListAgents(ctx context.Context) ([]model.Agent, error)

	// CreateThread 创建新 thread；vectorStoreIDs 非空时挂载 file_search 工具资源
	//（工具资源只能在 thread 创建时挂载）
	CreateThread(ctx context.Context, vectorStoreIDs []string) (string, error)

	// CreateMessage 向 thread 追加一条消息
	CreateMessage(ctx context.Context, threadID, role, content string) error

	// StreamRun 对指定 agent 启动一次 run 并返回其事件流；
	// 通道在上游流结束后关闭
	StreamRun(ctx context.Context, threadID, agentID string) (<-chan RunEvent, error)

	// UploadFile 上传单个文件（assistants 用途），返回文件 ID
	UploadFile(ctx context.Context, fileName string, data []byte) (string, error)

	// CreateVectorStore 基于已上传文件构建内容索引，expiryDays 为按
	// last_active_at 锚定的过期天数
	CreateVectorStore(ctx context.Context, fileIDs []string, expiryDays int) (string, error)

	// DeleteVectorStore 按索引自身的 ID 删除索引
	DeleteVectorStore(ctx context.Context, vectorStoreID string) error
}
