package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP 请求计数
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status", "tenant_id"},
	)

	// HTTP 请求延迟
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dashboard_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "path", "tenant_id"},
	)

	// 汇总载荷构建延迟
	summaryBuildDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dashboard_summary_build_duration_seconds",
			Help:    "Dashboard summary payload build duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode", "tenant_id"},
	)

	// 报表操作计数
	reportOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_report_operations_total",
			Help: "Total number of report operations",
		},
		[]string{"operation", "status", "tenant_id"},
	)

	// WebSocket 连接数
	websocketConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dashboard_websocket_connections",
			Help: "Current number of WebSocket connections",
		},
		[]string{"tenant_id", "mode"},
	)

	// 错误计数
	errorCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_errors_total",
			Help: "Total number of errors",
		},
		[]string{"type", "tenant_id"},
	)
)

// MetricsMiddleware Prometheus 指标采集中间件
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		method := c.Request.Method

		c.Next()

		// 用路由模板而不是原始 path，避免标签基数爆炸
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		tenantID := c.GetString("tenant_id")
		if tenantID == "" {
			tenantID = "unknown"
		}

		duration := time.Since(start).Seconds()
		httpRequestDuration.WithLabelValues(method, path, tenantID).Observe(duration)

		status := strconv.Itoa(c.Writer.Status())
		httpRequestsTotal.WithLabelValues(method, path, status, tenantID).Inc()

		if c.Writer.Status() >= 400 {
			errorType := "client_error"
			if c.Writer.Status() >= 500 {
				errorType = "server_error"
			}
			errorCount.WithLabelValues(errorType, tenantID).Inc()
		}
	}
}

// RecordSummaryBuild 记录汇总载荷构建延迟
func RecordSummaryBuild(mode, tenantID string, duration time.Duration) {
	summaryBuildDuration.WithLabelValues(mode, tenantID).Observe(duration.Seconds())
}

// RecordReportOperation 记录报表操作
func RecordReportOperation(operation, status, tenantID string) {
	reportOperations.WithLabelValues(operation, status, tenantID).Inc()
}

// IncWebSocketConnections 增加 WebSocket 连接数
func IncWebSocketConnections(tenantID, mode string) {
	websocketConnections.WithLabelValues(tenantID, mode).Inc()
}

// DecWebSocketConnections 减少 WebSocket 连接数
func DecWebSocketConnections(tenantID, mode string) {
	websocketConnections.WithLabelValues(tenantID, mode).Dec()
}
