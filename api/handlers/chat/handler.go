package chat

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"policyqa/api/handlers/common"
	chatsvc "policyqa/internal/chat"
)

// ChatRequest 问答请求
type ChatRequest struct {
	WorkspaceID string `json:"workspace_id" binding:"required"`
	Question    string `json:"question" binding:"required,min=3"`
}

// Handler 问答 Handler
type Handler struct {
	service *chatsvc.Service
}

// NewHandler 创建 Handler
func NewHandler(service *chatsvc.Service) *Handler {
	return &Handler{service: service}
}

// Ask 工作区内问答
// @Summary 接地问答
// @Description 只基于工作区内文档回答，上下文中没有答案时返回固定拒答句
// @Tags Chat
// @Accept json
// @Produce json
// @Param request body ChatRequest true "问题"
// @Success 200 {object} chatsvc.Answer
// @Failure 400 {object} common.ErrorResponse
// @Failure 404 {object} common.ErrorResponse
// @Router /chat [post]
func (h *Handler) Ask(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, common.ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: err.Error(),
		})
		return
	}

	answer, err := h.service.Ask(c.Request.Context(), req.WorkspaceID, req.Question)
	if err != nil {
		common.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, answer)
}
