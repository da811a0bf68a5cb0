package handler

import (
	"net/http"

	"aichat-backend/internal/model"
	"aichat-backend/internal/service"

	"github.com/gin-gonic/gin"
)

type RecommendHandler struct {
	recommendService *service.RecommendService
}

func NewRecommendHandler(recommendService *service.RecommendService) *RecommendHandler {
	return &RecommendHandler{
		recommendService: recommendService,
	}
}

// GetRecommendations 基于会话历史生成至多 3 条追问建议。
// 生成失败不向用户暴露错误，直接退化为空列表。
func (h *RecommendHandler) GetRecommendations(c *gin.Context) {
	var req model.RecommendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	questions := h.recommendService.Suggest(c.Request.Context(), req.MessageHistory)

	c.JSON(http.StatusOK, gin.H{"questions": questions})
}
