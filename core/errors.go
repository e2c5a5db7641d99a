package core

import (
	"errors"
	"fmt"
)

// DomainError 是领域层的统一错误类型。
//
// 设计原则：
//   - 所有领域层错误都使用此类型
//   - 提供错误代码（Code）、消息（Message）和可选的底层错误（Err）
//   - 支持错误检查函数（IsXXX），基于 errors.As，可穿透 fmt.Errorf("%w") 包装
//
// 使用场景：
//   - Feature 错误：SCHEMA_MISMATCH、INVALID_INPUT
//   - Model 错误：MODEL_LOAD、SCHEMA_MISMATCH、NOT_SUPPORTED
//   - Explain 错误：EXPLAINER_CONSTRUCTION、SCHEMA_MISMATCH
//   - Store 错误：NOT_FOUND、NOT_SUPPORTED
type DomainError struct {
	Code    string // 错误代码（如 "SCHEMA_MISMATCH", "MODEL_LOAD"）
	Message string // 错误消息
	Module  string // 模块名称（如 "feature", "model", "explain"）
	Err     error  // 底层错误（可选）
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is 按 Module + Code 匹配，便于 errors.Is(err, core.ErrStoreNotFound) 这类哨兵比较。
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Module == t.Module && e.Code == t.Code
}

// IsDomainError 检查错误链中是否包含 DomainError
func IsDomainError(err error) bool {
	return GetDomainError(err) != nil
}

// GetDomainError 获取错误链中的第一个 DomainError，如果没有则返回 nil
func GetDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return nil
}

// NewDomainError 创建新的领域错误
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
	}
}

// WrapDomainError 创建携带底层错误的领域错误
func WrapDomainError(module, code string, err error, format string, args ...any) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// 错误代码常量
const (
	ErrorCodeNotFound              = "NOT_FOUND"              // 资源不存在
	ErrorCodeNotSupported          = "NOT_SUPPORTED"          // 操作不支持
	ErrorCodeUnavailable           = "UNAVAILABLE"            // 服务不可用
	ErrorCodeInvalidInput          = "INVALID_INPUT"          // 输入无效（记录字段越界等）
	ErrorCodeInternalError         = "INTERNAL_ERROR"         // 内部错误
	ErrorCodeSchemaMismatch        = "SCHEMA_MISMATCH"        // 特征向量与模型 schema 不一致
	ErrorCodeModelLoad             = "MODEL_LOAD"             // 模型/元数据加载失败
	ErrorCodeExplainerConstruction = "EXPLAINER_CONSTRUCTION" // 模型不支持任何归因方法
)

// 模块名称常量
const (
	ModuleStore    = "store"
	ModuleFeature  = "feature"
	ModuleModel    = "model"
	ModuleExplain  = "explain"
	ModulePipeline = "pipeline"
	ModuleDataset  = "dataset"
	ModuleService  = "service"
)

func hasCode(err error, code string) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == code
	}
	return false
}

// IsNotFound 检查错误是否为 NOT_FOUND
func IsNotFound(err error) bool { return hasCode(err, ErrorCodeNotFound) }

// IsNotSupported 检查错误是否为 NOT_SUPPORTED
func IsNotSupported(err error) bool { return hasCode(err, ErrorCodeNotSupported) }

// IsUnavailable 检查错误是否为 UNAVAILABLE
func IsUnavailable(err error) bool { return hasCode(err, ErrorCodeUnavailable) }

// IsInvalidInput 检查错误是否为 INVALID_INPUT
func IsInvalidInput(err error) bool { return hasCode(err, ErrorCodeInvalidInput) }

// IsSchemaMismatch 检查错误是否为 SCHEMA_MISMATCH
func IsSchemaMismatch(err error) bool { return hasCode(err, ErrorCodeSchemaMismatch) }

// IsModelLoad 检查错误是否为 MODEL_LOAD
func IsModelLoad(err error) bool { return hasCode(err, ErrorCodeModelLoad) }

// IsExplainerConstruction 检查错误是否为 EXPLAINER_CONSTRUCTION
func IsExplainerConstruction(err error) bool {
	return hasCode(err, ErrorCodeExplainerConstruction)
}

// NewSchemaMismatch 构造 schema 不一致错误，附带期望与实际的特征数，方便排查列漂移。
func NewSchemaMismatch(module string, want, got []string) *DomainError {
	msg := fmt.Sprintf("%s: feature vector schema mismatch (want %d features, got %d)", module, len(want), len(got))
	for i := 0; i < len(want) && i < len(got); i++ {
		if want[i] != got[i] {
			msg = fmt.Sprintf("%s: feature vector schema mismatch at position %d (want %q, got %q)", module, i, want[i], got[i])
			break
		}
	}
	return NewDomainError(module, ErrorCodeSchemaMismatch, msg)
}
