package util

import (
	"errors"
	"fmt"
)

// 错误分类：NotFound / InvalidState / Upstream，业务层统一返回这些错误，
// 由 controller 转换为 HTTP 状态码。
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")
	ErrUpstream     = errors.New("upstream failure")
	ErrValidation   = errors.New("validation failed")

	ErrNoActiveAttempt   = fmt.Errorf("%w: no active assessment attempt", ErrInvalidState)
	ErrAttemptInProgress = fmt.Errorf("%w: attempt already in progress", ErrInvalidState)
	ErrInvalidOption     = fmt.Errorf("%w: option does not belong to question", ErrValidation)
	ErrInvalidQuestion   = fmt.Errorf("%w: question definition is inconsistent", ErrValidation)
	ErrInvalidPassword   = errors.New("invalid credentials")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrQuestionReviewed  = fmt.Errorf("%w: question already reviewed", ErrInvalidState)
)

// NotFoundError 记录无法解析的标识符及其层级（course / module / lesson ...）
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

func NewNotFound(kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}

// UpstreamError 包装模拟网络层返回的失败
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("upstream %s failed", e.Op)
	}
	return fmt.Sprintf("upstream %s failed: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrUpstream}
	}
	return []error{ErrUpstream, e.Err}
}

// NotFoundKind 返回无法解析的层级，非 NotFoundError 时返回空串
func NotFoundKind(err error) string {
	var nf *NotFoundError
	if errors.As(err, &nf) {
		return nf.Kind
	}
	return ""
}
