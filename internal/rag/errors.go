package rag

import (
	"errors"
	"fmt"
)

// 错误分类：HTTP 层依据类型映射状态码，核心层只负责携带语义。
// ValidationError -> 400, NotFoundError -> 404,
// ConfigurationError -> 配置提示, ProviderError -> 上游失败。

// ValidationError 用户可纠正的输入错误（非 PDF 上传、空分块、未知 ID 等）
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// NewValidationError 创建校验错误
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// NotFoundError 资源不存在（文档、工作区或其底层集合）
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s 不存在", e.Resource)
	}
	return fmt.Sprintf("%s %s 不存在", e.Resource, e.ID)
}

// NewNotFoundError 创建资源不存在错误
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ConfigurationError 凭证或索引缺失，直接给出配置提示而不是堆栈
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string { return e.Message }

// NewConfigurationError 创建配置错误
func NewConfigurationError(format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Message: fmt.Sprintf(format, args...)}
}

// ProviderError 上游服务（向量化/生成）在重试耗尽后的失败
type ProviderError struct {
	Provider string
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// NewProviderError 创建上游服务错误
func NewProviderError(provider, message string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Message: message, Err: err}
}

// IsValidation 判断是否为校验错误
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsNotFound 判断是否为资源不存在错误
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsConfiguration 判断是否为配置错误
func IsConfiguration(err error) bool {
	var target *ConfigurationError
	return errors.As(err, &target)
}

// IsProvider 判断是否为上游服务错误
func IsProvider(err error) bool {
	var target *ProviderError
	return errors.As(err, &target)
}
