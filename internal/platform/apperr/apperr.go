// Package apperr 定义了领域错误的分类，HTTP层据此映射状态码。
package apperr

import (
	"errors"
	"net/http"
	"strconv"
)

// Kind 是错误的机器可读分类
type Kind string

const (
	KindInternal          Kind = "INTERNAL"
	KindValidation        Kind = "VALIDATION"
	KindState             Kind = "STATE"
	KindAuthorization     Kind = "AUTHORIZATION"
	KindInsufficientFunds Kind = "INSUFFICIENT_FUNDS"
	KindNotFound          Kind = "NOT_FOUND"
)

// 哨兵错误，只用于 errors.Is 按分类匹配
var (
	ErrValidation        = &Error{Kind: KindValidation}
	ErrState             = &Error{Kind: KindState}
	ErrAuthorization     = &Error{Kind: KindAuthorization}
	ErrInsufficientFunds = &Error{Kind: KindInsufficientFunds}
	ErrNotFound          = &Error{Kind: KindNotFound}
)

// Error 是带有分类和上下文的领域错误
type Error struct {
	Kind     Kind
	Message  string
	Metadata map[string]string
	Cause    error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is 按分类匹配，使 errors.Is(err, apperr.ErrState) 成立
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Validation 表示输入格式错误，不应重试
func Validation(msg string) *Error { return newError(KindValidation, msg) }

// State 表示下注当前状态不允许该操作
func State(msg string) *Error { return newError(KindState, msg) }

// Authorization 表示操作者无权执行该操作
func Authorization(msg string) *Error { return newError(KindAuthorization, msg) }

// NotFound 表示引用的实体不存在
func NotFound(msg string) *Error { return newError(KindNotFound, msg) }

// Internal 包装存储层等基础设施错误
func Internal(msg string, cause error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Cause: cause}
}

// InsufficientFunds 表示余额不足，携带需要与可用的数额
func InsufficientFunds(msg string, required, available int64) *Error {
	return &Error{
		Kind:    KindInsufficientFunds,
		Message: msg,
		Metadata: map[string]string{
			"required":  strconv.FormatInt(required, 10),
			"available": strconv.FormatInt(available, 10),
		},
	}
}

// KindOf 返回错误链中第一个领域错误的分类，非领域错误视为内部错误
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MetadataOf 返回错误链中第一个领域错误的附加信息
func MetadataOf(err error) map[string]string {
	var e *Error
	if errors.As(err, &e) {
		return e.Metadata
	}
	return nil
}

// HTTPStatus 把错误分类映射为HTTP状态码
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindState:
		return http.StatusConflict
	case KindInsufficientFunds:
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}
