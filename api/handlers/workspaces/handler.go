package workspaces

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"policyqa/api/handlers/common"
	"policyqa/internal/workspace"
)

// CreateWorkspaceRequest 创建工作区请求
type CreateWorkspaceRequest struct {
	Name        string   `json:"name" binding:"required"`
	DocumentIDs []string `json:"document_ids"`
}

// Handler 工作区 Handler
type Handler struct {
	service *workspace.Service
}

// NewHandler 创建 Handler
func NewHandler(service *workspace.Service) *Handler {
	return &Handler{service: service}
}

// Create 创建工作区
// @Summary 创建隔离检索工作区
// @Description 校验文档 ID，把成员文档的向量从暂存集合克隆到工作区专属集合
// @Tags Workspaces
// @Accept json
// @Produce json
// @Param request body CreateWorkspaceRequest true "工作区信息"
// @Success 201 {object} workspace.Workspace
// @Failure 400 {object} common.ErrorResponse
// @Failure 404 {object} common.ErrorResponse
// @Router /workspaces [post]
func (h *Handler) Create(c *gin.Context) {
	var req CreateWorkspaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, common.ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: err.Error(),
		})
		return
	}

	ws, err := h.service.Create(c.Request.Context(), req.Name, req.DocumentIDs)
	if err != nil {
		common.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, ws)
}

// List 列出工作区
// @Summary 列出全部工作区
// @Tags Workspaces
// @Produce json
// @Success 200 {object} map[string]any
// @Router /workspaces [get]
func (h *Handler) List(c *gin.Context) {
	workspaces, err := h.service.List(c.Request.Context())
	if err != nil {
		common.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"workspaces": workspaces,
		"total":      len(workspaces),
	})
}

// Get 获取工作区详情
// @Summary 获取工作区详情
// @Tags Workspaces
// @Produce json
// @Param id path string true "工作区 ID"
// @Success 200 {object} workspace.Workspace
// @Failure 404 {object} common.ErrorResponse
// @Router /workspaces/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	ws, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		common.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, ws)
}
