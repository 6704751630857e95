package errors

import (
	"net/http"
	"time"

	kerrors "github.com/go-kratos/kratos/v2/errors"
)

// 错误原因常量，写入响应的 reason 字段，前端据此分支而不是解析 message
const (
	ReasonInvalidArgument   = "INVALID_ARGUMENT"
	ReasonUnauthorized      = "UNAUTHORIZED"
	ReasonTenantRequired    = "TENANT_REQUIRED"
	ReasonNotFound          = "NOT_FOUND"
	ReasonConflict          = "CONFLICT"
	ReasonRateLimited       = "RATE_LIMITED"
	ReasonSourceUnavailable = "SOURCE_UNAVAILABLE"
	ReasonInternal          = "INTERNAL"
)

// Response HTTP 错误响应体
// code 与 HTTP 状态码一致，message 面向用户，details 仅在有补充信息时出现。
type Response struct {
	Code      int    `json:"code"`
	Reason    string `json:"reason,omitempty"`
	Message   string `json:"message"`
	Details   string `json:"details,omitempty"`
	TraceID   string `json:"trace_id,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// New 构造错误响应
func New(code int, reason, message string) *Response {
	return &Response{
		Code:      code,
		Reason:    reason,
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// BadRequest 参数错误
func BadRequest(message string) *Response {
	return New(http.StatusBadRequest, ReasonInvalidArgument, message)
}

// Unauthorized 未认证
func Unauthorized(message string) *Response {
	return New(http.StatusUnauthorized, ReasonUnauthorized, message)
}

// TenantRequired 缺少租户标识
func TenantRequired() *Response {
	return New(http.StatusBadRequest, ReasonTenantRequired, "tenant_id is required")
}

// NotFound 资源不存在
func NotFound(message string) *Response {
	return New(http.StatusNotFound, ReasonNotFound, message)
}

// Conflict 请求与进行中的操作冲突
func Conflict(message string) *Response {
	return New(http.StatusConflict, ReasonConflict, message)
}

// TooManyRequests 触发限流
func TooManyRequests(message string) *Response {
	return New(http.StatusTooManyRequests, ReasonRateLimited, message)
}

// Unavailable 数据源不可用
func Unavailable(message string) *Response {
	return New(http.StatusServiceUnavailable, ReasonSourceUnavailable, message)
}

// Internal 内部错误，message 不透出原始错误内容
func Internal() *Response {
	return New(http.StatusInternalServerError, ReasonInternal, "internal server error")
}

// WithDetails 附加补充信息
func (r *Response) WithDetails(details string) *Response {
	r.Details = details
	return r
}

// WithTrace 附加链路追踪 ID
func (r *Response) WithTrace(traceID string) *Response {
	r.TraceID = traceID
	return r
}

// FromError 从任意错误映射响应
// kratos 错误携带状态码与 reason，原样透传；其他错误一律按内部错误处理。
func FromError(err error) *Response {
	if err == nil {
		return nil
	}
	if ke := kerrors.FromError(err); ke != nil && ke.Code != kerrors.UnknownCode {
		return New(int(ke.Code), ke.Reason, ke.Message)
	}
	return Internal()
}

// IsRetryable 判断状态码是否值得客户端重试
func IsRetryable(code int) bool {
	switch code {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}
