package chat

import "time"

// MessageStatus 消息状态机：sending → sent | error，终态不可再变
type MessageStatus string

const (
	StatusSending MessageStatus = "sending"
	StatusSent    MessageStatus = "sent"
	StatusError   MessageStatus = "error"
)

// AttachedFile 随用户消息上传的文件，创建后不可变
type AttachedFile struct {
	Name     string
	MimeType string
	Data     []byte
}

// ChatMessage 会话中的一轮。Content 在 sending 状态下可被反复覆盖
//（增量累积），进入 sent / error 后冻结。
type ChatMessage struct {
	ID            string
	Content       string
	Timestamp     time.Time
	IsUserMessage bool
	Status        MessageStatus
	AttachedFiles []AttachedFile
}
