package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
)

// mock 模式没有 Redis，幂等中间件必须完全不拦截请求
func TestIdempotencyDisabledWithoutRedis(t *testing.T) {
	gin.SetMode(gin.TestMode)

	idem := NewIdempotency(nil, log.DefaultLogger)

	handled := 0
	router := gin.New()
	router.POST("/reports", idem.Middleware(), func(c *gin.Context) {
		handled++
		c.JSON(http.StatusCreated, gin.H{"seq": handled})
	})

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/reports", nil)
		req.Header.Set(IdempotencyKeyHeader, "key-1")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Empty(t, w.Header().Get("X-Idempotency-Replayed"))
	}
	assert.Equal(t, 2, handled, "无 Redis 时不应去重")
}

func TestCaptureWriterRecordsBody(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	writer := &captureWriter{ResponseWriter: c.Writer}

	_, err := writer.Write([]byte(`{"id":`))
	assert.NoError(t, err)
	_, err = writer.WriteString(`"r-1"}`)
	assert.NoError(t, err)

	assert.Equal(t, `{"id":"r-1"}`, string(writer.body))
}
