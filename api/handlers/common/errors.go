package common

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"policyqa/internal/logger"
	"policyqa/internal/rag"
)

// AbortWithError 把领域错误映射为 HTTP 状态码并终止请求。
// 校验错误 400、资源不存在 404、配置错误 500（带配置提示）、
// 上游失败 502；其余一律 500，细节只进日志不出响应。
func AbortWithError(c *gin.Context, err error) {
	switch {
	case rag.IsValidation(err):
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: err.Error(),
		})
	case rag.IsNotFound(err):
		c.AbortWithStatusJSON(http.StatusNotFound, ErrorResponse{
			Code:    "NOT_FOUND",
			Message: err.Error(),
		})
	case rag.IsConfiguration(err):
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "CONFIGURATION_ERROR",
			Message: err.Error(),
		})
	case rag.IsProvider(err):
		logger.Error("上游服务失败", zap.String("path", c.FullPath()), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusBadGateway, ErrorResponse{
			Code:    "PROVIDER_ERROR",
			Message: "上游服务暂时不可用，请稍后重试",
		})
	default:
		logger.Error("请求处理失败", zap.String("path", c.FullPath()), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "INTERNAL_ERROR",
			Message: "内部错误",
		})
	}
}
