package errors

import (
	"encoding/json"
	"net/http"
	"testing"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/stretchr/testify/assert"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name    string
		resp    *Response
		code    int
		reason  string
	}{
		{"参数错误", BadRequest("bad range"), http.StatusBadRequest, ReasonInvalidArgument},
		{"未认证", Unauthorized("missing token"), http.StatusUnauthorized, ReasonUnauthorized},
		{"缺少租户", TenantRequired(), http.StatusBadRequest, ReasonTenantRequired},
		{"不存在", NotFound("report not found"), http.StatusNotFound, ReasonNotFound},
		{"冲突", Conflict("already processing"), http.StatusConflict, ReasonConflict},
		{"限流", TooManyRequests("slow down"), http.StatusTooManyRequests, ReasonRateLimited},
		{"数据源不可用", Unavailable("clickhouse down"), http.StatusServiceUnavailable, ReasonSourceUnavailable},
		{"内部错误", Internal(), http.StatusInternalServerError, ReasonInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.resp.Code)
			assert.Equal(t, tt.reason, tt.resp.Reason)
			assert.NotEmpty(t, tt.resp.Message)
			assert.NotEmpty(t, tt.resp.Timestamp)
		})
	}
}

func TestResponseJSONOmitsEmptyFields(t *testing.T) {
	raw, err := json.Marshal(BadRequest("bad range"))
	assert.NoError(t, err)

	var m map[string]interface{}
	assert.NoError(t, json.Unmarshal(raw, &m))
	assert.Equal(t, float64(400), m["code"])
	assert.Equal(t, "bad range", m["message"])
	assert.NotContains(t, m, "details")
	assert.NotContains(t, m, "trace_id")
}

func TestWithDetailsAndTrace(t *testing.T) {
	resp := NotFound("report not found").
		WithDetails("id=r-42").
		WithTrace("abc123")

	assert.Equal(t, "id=r-42", resp.Details)
	assert.Equal(t, "abc123", resp.TraceID)
}

func TestFromError(t *testing.T) {
	assert.Nil(t, FromError(nil))

	// kratos 错误透传状态码与 reason
	ke := kerrors.ServiceUnavailable("SOURCE_UNAVAILABLE", "clickhouse query failed")
	resp := FromError(ke)
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
	assert.Equal(t, "SOURCE_UNAVAILABLE", resp.Reason)

	// 普通错误收敛为内部错误，不透出原始内容
	resp = FromError(assert.AnError)
	assert.Equal(t, http.StatusInternalServerError, resp.Code)
	assert.Equal(t, "internal server error", resp.Message)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(http.StatusTooManyRequests))
	assert.True(t, IsRetryable(http.StatusServiceUnavailable))
	assert.False(t, IsRetryable(http.StatusBadRequest))
	assert.False(t, IsRetryable(http.StatusNotFound))
	assert.False(t, IsRetryable(http.StatusOK))
}
