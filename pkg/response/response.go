// Package response 定义统一的 HTTP JSON 响应结构
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequestIDKey gin.Context 中保存请求 ID 的 key
const RequestIDKey = "request_id"

// Body 响应体
type Body struct {
	Code      int    `json:"code"`
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
	Data      any    `json:"data,omitempty"`
	Kind      string `json:"kind,omitempty"`
	Detail    string `json:"detail,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// Success 200 成功响应
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Body{Code: http.StatusOK, Success: true, Message: "ok", Data: data})
}

// Created 201 成功响应
func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, Body{Code: http.StatusCreated, Success: true, Message: "created", Data: data})
}

// ErrorWithStatus 以指定状态码返回错误
func ErrorWithStatus(c *gin.Context, status int, message, detail string) {
	c.AbortWithStatusJSON(status, Body{
		Code:      status,
		Message:   message,
		Detail:    detail,
		RequestID: c.GetString(RequestIDKey),
	})
}

// Fail 返回带错误类别的响应，retryable 提示调用方可以重试
func Fail(c *gin.Context, status int, kind, message string, retryable bool) {
	c.AbortWithStatusJSON(status, Body{
		Code:      status,
		Message:   message,
		Kind:      kind,
		Retryable: retryable,
		RequestID: c.GetString(RequestIDKey),
	})
}
