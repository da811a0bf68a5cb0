package model

// Agent 云端可选择的对话实体，完全来源于外部 Agent 目录
type Agent struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}
