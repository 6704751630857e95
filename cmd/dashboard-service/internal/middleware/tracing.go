package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"voicedash/pkg/observability"
)

// TracingMiddleware 请求级链路追踪中间件
// 每个请求开启一个 server span，trace id 回写到响应头便于排障关联。
func TracingMiddleware(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		spanName := fmt.Sprintf("%s %s", c.Request.Method, route)

		ctx, span := observability.StartSpan(c.Request.Context(), serviceName, spanName,
			trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		c.Request = c.Request.WithContext(ctx)

		if traceID := observability.TraceID(ctx); traceID != "" {
			c.Header("X-Trace-ID", traceID)
		}

		c.Next()

		attrs := []attribute.KeyValue{
			attribute.String("http.method", c.Request.Method),
			attribute.String("http.route", route),
			attribute.Int("http.status_code", c.Writer.Status()),
		}
		if tenantID := c.GetString("tenant_id"); tenantID != "" {
			attrs = append(attrs, attribute.String("tenant.id", tenantID))
		}
		observability.SetAttributes(span, attrs...)

		if len(c.Errors) > 0 {
			observability.RecordError(span, c.Errors.Last())
		}
	}
}
