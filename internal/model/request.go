package model

// ChatRequest 聊天请求体（JSON 变体；multipart 变体由 handler 手工提取同名字段）
type ChatRequest struct {
	AgentID        string           `json:"agentId" binding:"required"`
	Message        string           `json:"message" binding:"required"`
	MessageHistory []HistoryMessage `json:"messageHistory"`
	ThreadID       string           `json:"threadId"` // 为空表示由中继创建新 thread
}

// HistoryMessage 会话历史中的一轮
type HistoryMessage struct {
	Role    string `json:"role"` // user | assistant
	Content string `json:"content"`
}

// RecommendRequest 推荐问题请求
type RecommendRequest struct {
	MessageHistory []HistoryMessage `json:"messageHistory" binding:"required"`
}
