package documents

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"policyqa/api/handlers/common"
	"policyqa/internal/document"
)

// Handler 文档 Handler
type Handler struct {
	service *document.Service
}

// NewHandler 创建 Handler
func NewHandler(service *document.Service) *Handler {
	return &Handler{service: service}
}

// Upload 上传文档
// @Summary 上传 PDF 文档
// @Description 校验文件类型，解析、分块、向量化后写入暂存集合
// @Tags Documents
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "PDF 文件"
// @Success 201 {object} document.Document
// @Failure 400 {object} common.ErrorResponse
// @Router /documents/upload [post]
func (h *Handler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, common.ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "缺少 file 字段",
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		common.AbortWithError(c, err)
		return
	}
	defer file.Close()

	doc, err := h.service.Upload(c.Request.Context(), fileHeader.Filename, file)
	if err != nil {
		common.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, doc)
}

// List 列出文档
// @Summary 列出全部文档
// @Tags Documents
// @Produce json
// @Success 200 {object} map[string]any
// @Router /documents [get]
func (h *Handler) List(c *gin.Context) {
	docs, err := h.service.List(c.Request.Context())
	if err != nil {
		common.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"documents": docs,
		"total":     len(docs),
	})
}

// Get 获取文档详情
// @Summary 获取文档详情
// @Tags Documents
// @Produce json
// @Param id path string true "文档 ID"
// @Success 200 {object} document.Document
// @Failure 404 {object} common.ErrorResponse
// @Router /documents/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	doc, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		common.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, doc)
}
