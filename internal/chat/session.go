package chat

import (
	"strconv"
	"sync"
	"time"

	"aichat-backend/internal/model"
)

// Session 会话引擎的客户端状态：消息日志、当前选中的 Agent、
// 以及按 Agent 缓存的 thread id。显式持有、按引用传递，没有隐式单例。
//
// 订阅语义：每次变更后向订阅者发布完整消息快照（整表替换），
// 订阅者看到的永远是变更后的一致视图，不存在半更新状态。
type Session struct {
	mu sync.RWMutex

	selectedAgent   *model.Agent
	messages        []ChatMessage
	threadIDs       map[string]string
	currentThreadID string
	pendingID       string // 在途占位消息，同一时刻至多一个

	messageSubs []func([]ChatMessage)
	agentSubs   []func(model.Agent)

	lastID int64 // 消息 id 生成用，保证单调
}

func NewSession() *Session {
	return &Session{
		threadIDs: make(map[string]string),
	}
}

// SubscribeMessages 注册消息日志订阅者，每次变更收到完整快照
func (s *Session) SubscribeMessages(fn func([]ChatMessage)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messageSubs = append(s.messageSubs, fn)
}

// SubscribeAgent 注册选中 Agent 变更订阅者
func (s *Session) SubscribeAgent(fn func(model.Agent)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.agentSubs = append(s.agentSubs, fn)
}

// SelectAgent 切换选中的 Agent。切到不同的 Agent 会清空消息日志与
// 当前 thread id（消息历史按 Agent 隔离，绝不跨 Agent 携带）；
// 重新选中同一个 Agent 则恢复之前为它缓存的 thread id。
func (s *Session) SelectAgent(agent model.Agent) {
	s.mu.Lock()

	cleared := false
	if s.selectedAgent == nil || s.selectedAgent.ID != agent.ID {
		s.messages = nil
		s.currentThreadID = ""
		s.pendingID = ""
		cleared = true
	} else {
		s.currentThreadID = s.threadIDs[agent.ID]
	}

	selected := agent
	s.selectedAgent = &selected

	agentSubs := append([]func(model.Agent){}, s.agentSubs...)
	var messageSubs []func([]ChatMessage)
	var snapshot []ChatMessage
	if cleared {
		messageSubs = append([]func([]ChatMessage){}, s.messageSubs...)
		snapshot = s.snapshotLocked()
	}
	s.mu.Unlock()

	for _, fn := range agentSubs {
		fn(agent)
	}
	for _, fn := range messageSubs {
		fn(snapshot)
	}
}

// SelectedAgent 返回当前选中 Agent 的副本，未选中时返回 nil
func (s *Session) SelectedAgent() *model.Agent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.selectedAgent == nil {
		return nil
	}
	agent := *s.selectedAgent
	return &agent
}

// CurrentThreadID 当前 thread id，空串表示下次发送需要新建 thread
func (s *Session) CurrentThreadID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.currentThreadID
}

// Messages 返回消息日志的快照
func (s *Session) Messages() []ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.snapshotLocked()
}

// History 把消息日志转成发给中继的历史格式
func (s *Session) History() []model.HistoryMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := make([]model.HistoryMessage, 0, len(s.messages))
	for _, msg := range s.messages {
		role := "assistant"
		if msg.IsUserMessage {
			role = "user"
		}
		history = append(history, model.HistoryMessage{Role: role, Content: msg.Content})
	}

	return history
}

// AppendUserMessage 追加用户消息。乐观更新：用户自己的消息直接落为
// sent，不经过 pending 状态。
func (s *Session) AppendUserMessage(content string, files []AttachedFile) string {
	s.mu.Lock()

	msg := ChatMessage{
		ID:            s.nextIDLocked(),
		Content:       content,
		Timestamp:     time.Now(),
		IsUserMessage: true,
		Status:        StatusSent,
		AttachedFiles: files,
	}
	s.messages = append(s.messages, msg)

	s.publishLocked()
	return msg.ID
}

// AppendBotPlaceholder 追加空内容的 sending 占位消息，返回其 id 供后续
// 增量与终态关联。同一逻辑发送在途时不允许第二个占位。
func (s *Session) AppendBotPlaceholder() (string, error) {
	s.mu.Lock()

	if s.pendingID != "" {
		s.mu.Unlock()
		return "", ErrPendingExists
	}

	msg := ChatMessage{
		ID:        s.nextIDLocked(),
		Content:   "",
		Timestamp: time.Now(),
		Status:    StatusSending,
	}
	s.messages = append(s.messages, msg)
	s.pendingID = msg.ID

	s.publishLocked()
	return msg.ID, nil
}

// ApplyDelta 向 sending 中的消息追加增量文本
func (s *Session) ApplyDelta(id, deltaText string) error {
	s.mu.Lock()

	msg := s.findLocked(id)
	if msg == nil {
		s.mu.Unlock()
		return ErrMessageNotFound
	}
	if msg.Status != StatusSending {
		s.mu.Unlock()
		return ErrMessageFrozen
	}

	msg.Content += deltaText

	s.publishLocked()
	return nil
}

// Finalize 用权威全文收尾：finalText 覆盖此前累积的增量（两者绝不
// 二次拼接），状态置为 sent。finalText 为空时同样保留 sent 状态，
// 消息不会被静默丢弃。
func (s *Session) Finalize(id, finalText string) error {
	return s.resolve(id, finalText, StatusSent)
}

// Fail 把 sending 中的消息置为 error 并写入错误文案。不自动重试，
// 重试是一次全新的用户发送。
func (s *Session) Fail(id, errorText string) error {
	return s.resolve(id, errorText, StatusError)
}

func (s *Session) resolve(id, content string, status MessageStatus) error {
	s.mu.Lock()

	msg := s.findLocked(id)
	if msg == nil {
		s.mu.Unlock()
		return ErrMessageNotFound
	}
	if msg.Status != StatusSending {
		s.mu.Unlock()
		return ErrMessageFrozen
	}

	msg.Content = content
	msg.Status = status
	if s.pendingID == id {
		s.pendingID = ""
	}

	s.publishLocked()
	return nil
}

// RecordThreadID 记录 agent → thread 映射，同时设为当前 thread，
// 对同一 Agent 的下一次发送生效
func (s *Session) RecordThreadID(agentID, threadID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.threadIDs[agentID] = threadID
	s.currentThreadID = threadID
}

// HasPending 是否存在在途占位消息
func (s *Session) HasPending() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.pendingID != ""
}

func (s *Session) findLocked(id string) *ChatMessage {
	for i := range s.messages {
		if s.messages[i].ID == id {
			return &s.messages[i]
		}
	}
	return nil
}

func (s *Session) snapshotLocked() []ChatMessage {
	snapshot := make([]ChatMessage, len(s.messages))
	copy(snapshot, s.messages)
	return snapshot
}

// publishLocked 在持锁状态下取快照与订阅者列表，解锁后再回调，
// 避免订阅者回调中再进入 Session 造成死锁。调用方必须持有写锁。
func (s *Session) publishLocked() {
	subs := append([]func([]ChatMessage){}, s.messageSubs...)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	for _, fn := range subs {
		fn(snapshot)
	}
}

// nextIDLocked 生成时间戳派生、保证单调递增的消息 id
func (s *Session) nextIDLocked() string {
	now := time.Now().UnixMilli()
	if now <= s.lastID {
		now = s.lastID + 1
	}
	s.lastID = now
	return strconv.FormatInt(now, 10)
}
