package domain

import (
	"errors"
	"fmt"
)

// ErrorKind 错误类别，接口层据此映射状态码
type ErrorKind string

const (
	KindValidation         ErrorKind = "ValidationError"
	KindProductNotFound    ErrorKind = "ProductNotFound"
	KindCategoryNotFound   ErrorKind = "CategoryNotFound"
	KindSaleNotFound       ErrorKind = "SaleNotFound"
	KindIntegrityConflict  ErrorKind = "IntegrityConflict"
	KindTransactionFailure ErrorKind = "TransactionFailure"
)

// 每个类别对应的哨兵错误，配合 errors.Is 使用
var (
	ErrValidation         = &Error{Kind: KindValidation}
	ErrProductNotFound    = &Error{Kind: KindProductNotFound}
	ErrCategoryNotFound   = &Error{Kind: KindCategoryNotFound}
	ErrSaleNotFound       = &Error{Kind: KindSaleNotFound}
	ErrIntegrityConflict  = &Error{Kind: KindIntegrityConflict}
	ErrTransactionFailure = &Error{Kind: KindTransactionFailure}
)

// Error 领域错误
type Error struct {
	Kind    ErrorKind
	Message string
	// 触发该错误的商品（如有）
	ProductID uint
	Err       error
}

// NewError 创建领域错误
func NewError(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// ProductNotFound 构造商品不存在错误
func ProductNotFound(id uint) *Error {
	return &Error{Kind: KindProductNotFound, Message: fmt.Sprintf("product %d not found", id), ProductID: id}
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is 同类别的领域错误视为相等
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf 返回错误链上第一个领域错误的类别
func KindOf(err error) (ErrorKind, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind, true
	}
	return "", false
}

// Retryable 事务失败可由调用方重试，其余类别重试无意义
func Retryable(err error) bool {
	return errors.Is(err, ErrTransactionFailure)
}
