package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	klog "github.com/go-kratos/kratos/v2/log"
	gorillaws "github.com/gorilla/websocket"
	"go.uber.org/zap"

	"voicedash/cmd/dashboard-service/internal/conf"
	"voicedash/cmd/dashboard-service/internal/domain"
	"voicedash/cmd/dashboard-service/internal/middleware"
	"voicedash/cmd/dashboard-service/internal/service"
	"voicedash/cmd/dashboard-service/internal/websocket"
	httperrors "voicedash/pkg/errors"
	"voicedash/pkg/health"
	"voicedash/pkg/observability"
)

// Logger 日志接口
type Logger interface {
	Info(msg string, fields ...zap.Field)
	Error(msg string, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
}

// HTTPServer HTTP 服务器
type HTTPServer struct {
	engine      *gin.Engine
	service     *service.DashboardService
	hub         *websocket.Hub
	broadcaster *websocket.Broadcaster
	checks      *health.Registry
	idem        *middleware.Idempotency
	cfg         *conf.Config
	logger      Logger
	wsLogger    klog.Logger
	upgrader    *gorillaws.Upgrader
	server      *http.Server
}

// NewHTTPServer 创建 HTTP 服务器
func NewHTTPServer(
	srv *service.DashboardService,
	hub *websocket.Hub,
	broadcaster *websocket.Broadcaster,
	auth *middleware.JWTManager,
	limiter *middleware.RateLimiter,
	idem *middleware.Idempotency,
	checks *health.Registry,
	cfg *conf.Config,
	logger Logger,
	wsLogger klog.Logger,
) *HTTPServer {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()

	s := &HTTPServer{
		engine:      engine,
		service:     srv,
		hub:         hub,
		broadcaster: broadcaster,
		checks:      checks,
		idem:        idem,
		cfg:         cfg,
		logger:      logger,
		wsLogger:    wsLogger,
		upgrader:    newUpgrader(cfg.Server.AllowedOrigins),
	}

	s.registerMiddlewares(auth, limiter)
	s.registerRoutes()

	s.server = &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:        engine,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}

	return s
}

// registerMiddlewares 注册中间件
func (s *HTTPServer) registerMiddlewares(auth *middleware.JWTManager, limiter *middleware.RateLimiter) {
	s.engine.Use(gin.Recovery())
	s.engine.Use(s.requestLogger())
	s.engine.Use(s.corsMiddleware())
	if s.cfg.Observability.EnableTrace {
		s.engine.Use(middleware.TracingMiddleware(s.cfg.Observability.ServiceName))
	}
	s.engine.Use(middleware.MetricsMiddleware())

	if s.cfg.Auth.Enabled {
		s.engine.Use(auth.Middleware())
	}
	s.engine.Use(middleware.TenantResolver(s.cfg.Tenant.DefaultTenant))
	s.engine.Use(limiter.Middleware())

	s.engine.Use(s.errorHandler())
}

// requestLogger 请求日志中间件
func (s *HTTPServer) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		s.logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", status),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// corsMiddleware CORS 中间件
func (s *HTTPServer) corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Tenant-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// errorHandler 错误处理中间件
func (s *HTTPServer) errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			err := c.Errors.Last()
			s.logger.Error("Request error",
				zap.String("path", c.Request.URL.Path),
				zap.Error(err),
			)
		}
	}
}

// registerRoutes 注册路由
func (s *HTTPServer) registerRoutes() {
	api := s.engine.Group("/api/v1")

	// 看板接口
	dashboard := api.Group("/dashboard")
	{
		dashboard.GET("/live", s.getLiveSnapshot)
		dashboard.GET("/kpis", s.getKPIs)
		dashboard.GET("/summary", s.getSummary)
	}

	// 图表接口
	charts := api.Group("/charts")
	{
		charts.GET("/hourly", s.getHourlyChart)
		charts.GET("/daily", s.getDailyChart)
		charts.GET("/languages", s.breakdownHandler(domain.BreakdownLanguage))
		charts.GET("/intents", s.breakdownHandler(domain.BreakdownIntent))
		charts.GET("/resolutions", s.breakdownHandler(domain.BreakdownResolution))
	}

	// 容量档案
	api.GET("/capacity", s.getCapacity)
	api.PUT("/capacity", s.updateCapacity)

	// 报表接口
	reports := api.Group("/reports")
	{
		// 创建不是天然幂等，支持 Idempotency-Key 防重复提交
		reports.POST("", s.idem.Middleware(), s.createReport)
		reports.GET("", s.listReports)
		reports.GET("/:id", s.getReport)
		reports.DELETE("/:id", s.deleteReport)
	}

	// WebSocket 推送
	s.engine.GET("/ws/dashboard", s.handleDashboardWS)

	// 健康检查
	s.engine.GET("/health", s.healthCheck)
	s.engine.GET("/ready", s.readinessCheck)
}

// getLiveSnapshot 获取实时快照
func (s *HTTPServer) getLiveSnapshot(c *gin.Context) {
	tenantID, ok := s.requireTenant(c)
	if !ok {
		return
	}

	snapshot, err := s.service.Live(c.Request.Context(), tenantID)
	if err != nil {
		s.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

// getKPIs 获取 KPI 指标
func (s *HTTPServer) getKPIs(c *gin.Context) {
	tenantID, ok := s.requireTenant(c)
	if !ok {
		return
	}

	preset, start, end, err := s.parseRangeQuery(c)
	if err != nil {
		s.respondError(c, httperrors.BadRequest(err.Error()))
		return
	}

	kpis, err := s.service.KPIs(c.Request.Context(), tenantID, preset, start, end)
	if err != nil {
		s.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, kpis)
}

// getSummary 获取看板汇总载荷
func (s *HTTPServer) getSummary(c *gin.Context) {
	tenantID, ok := s.requireTenant(c)
	if !ok {
		return
	}

	mode := c.DefaultQuery("mode", "desktop")

	start := time.Now()
	summary, err := s.service.Summary(c.Request.Context(), tenantID, mode)
	if err != nil {
		s.handleServiceError(c, err)
		return
	}
	middleware.RecordSummaryBuild(mode, tenantID, time.Since(start))

	c.JSON(http.StatusOK, summary)
}

// getHourlyChart 获取今昨对比的小时曲线
func (s *HTTPServer) getHourlyChart(c *gin.Context) {
	tenantID, ok := s.requireTenant(c)
	if !ok {
		return
	}

	chart, err := s.service.HourlyChart(c.Request.Context(), tenantID)
	if err != nil {
		s.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, chart)
}

// getDailyChart 获取日趋势曲线
func (s *HTTPServer) getDailyChart(c *gin.Context) {
	tenantID, ok := s.requireTenant(c)
	if !ok {
		return
	}

	days, err := strconv.Atoi(c.DefaultQuery("days", "0"))
	if err != nil || days < 0 {
		s.respondError(c, httperrors.BadRequest("invalid days, must be a non-negative integer"))
		return
	}

	chart, err := s.service.DailyChart(c.Request.Context(), tenantID, days)
	if err != nil {
		s.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, chart)
}

// breakdownHandler 构造某个分类维度的图表 handler
func (s *HTTPServer) breakdownHandler(kind domain.BreakdownKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID, ok := s.requireTenant(c)
		if !ok {
			return
		}

		preset, start, end, err := s.parseRangeQuery(c)
		if err != nil {
			s.respondError(c, httperrors.BadRequest(err.Error()))
			return
		}

		breakdown, err := s.service.Breakdown(c.Request.Context(), tenantID, kind, preset, start, end)
		if err != nil {
			s.handleServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, breakdown)
	}
}

// getCapacity 获取容量档案
func (s *HTTPServer) getCapacity(c *gin.Context) {
	tenantID, ok := s.requireTenant(c)
	if !ok {
		return
	}

	profile, err := s.service.Capacity(c.Request.Context(), tenantID)
	if err != nil {
		s.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, profile)
}

// updateCapacity 更新容量档案
func (s *HTTPServer) updateCapacity(c *gin.Context) {
	tenantID, ok := s.requireTenant(c)
	if !ok {
		return
	}

	var req service.CapacityProfileDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, httperrors.BadRequest(err.Error()))
		return
	}
	req.TenantID = tenantID

	profile, err := s.service.UpdateCapacity(c.Request.Context(), &req)
	if err != nil {
		s.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, profile)
}

// createReport 创建报表
func (s *HTTPServer) createReport(c *gin.Context) {
	var req struct {
		TenantID  string `json:"tenant_id"`
		Type      string `json:"type" binding:"required"`
		Format    string `json:"format"`
		Name      string `json:"name" binding:"required"`
		CreatedBy string `json:"created_by"`
		Start     string `json:"start"`
		End       string `json:"end"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, httperrors.BadRequest(err.Error()))
		return
	}

	tenantID := req.TenantID
	if tenantID == "" {
		tenantID = middleware.TenantFrom(c)
	}
	if tenantID == "" {
		s.respondError(c, httperrors.TenantRequired())
		return
	}

	createdBy := req.CreatedBy
	if createdBy == "" {
		createdBy = c.GetString("user_id")
	}
	if createdBy == "" {
		createdBy = "api"
	}

	var start, end time.Time
	var err error
	if req.Start != "" {
		if start, err = parseDate(req.Start); err != nil {
			s.respondError(c, httperrors.BadRequest("invalid start date, expected YYYY-MM-DD or RFC3339"))
			return
		}
	}
	if req.End != "" {
		if end, err = parseDate(req.End); err != nil {
			s.respondError(c, httperrors.BadRequest("invalid end date, expected YYYY-MM-DD or RFC3339"))
			return
		}
	}

	report, err := s.service.CreateReport(c.Request.Context(), tenantID, req.Type, req.Format, req.Name, createdBy, start, end)
	if err != nil {
		middleware.RecordReportOperation("create", "error", tenantID)
		s.handleServiceError(c, err)
		return
	}
	middleware.RecordReportOperation("create", "success", tenantID)

	c.JSON(http.StatusCreated, report)
}

// getReport 获取报表
func (s *HTTPServer) getReport(c *gin.Context) {
	id := c.Param("id")

	report, err := s.service.GetReport(c.Request.Context(), id)
	if err != nil {
		s.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// listReports 列出报表
func (s *HTTPServer) listReports(c *gin.Context) {
	tenantID, ok := s.requireTenant(c)
	if !ok {
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		s.respondError(c, httperrors.BadRequest("invalid limit, must be a positive integer"))
		return
	}

	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		s.respondError(c, httperrors.BadRequest("invalid offset, must be non-negative"))
		return
	}

	reports, total, err := s.service.ListReports(c.Request.Context(), tenantID, limit, offset)
	if err != nil {
		s.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reports": reports,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	})
}

// deleteReport 删除报表
func (s *HTTPServer) deleteReport(c *gin.Context) {
	id := c.Param("id")

	if err := s.service.DeleteReport(c.Request.Context(), id); err != nil {
		middleware.RecordReportOperation("delete", "error", middleware.TenantFrom(c))
		s.handleServiceError(c, err)
		return
	}
	middleware.RecordReportOperation("delete", "success", middleware.TenantFrom(c))

	c.Status(http.StatusNoContent)
}

// healthCheck 健康检查
func (s *HTTPServer) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "healthy",
		"service":    "dashboard-service",
		"ws_clients": s.hub.ClientCount(),
		"time":       time.Now().Format(time.RFC3339),
	})
}

// readinessCheck 就绪检查
func (s *HTTPServer) readinessCheck(c *gin.Context) {
	ready, checks := s.checks.Ready(c.Request.Context())

	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"ready":  ready,
		"checks": checks,
		"time":   time.Now().Format(time.RFC3339),
	})
}

// Engine 返回 Gin 引擎
func (s *HTTPServer) Engine() *gin.Engine {
	return s.engine
}

// Start 启动服务器
func (s *HTTPServer) Start() error {
	s.logger.Info("HTTP server listening", zap.String("addr", s.server.Addr))
	return s.server.ListenAndServe()
}

// Shutdown 优雅停机
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// respondError 响应错误
// 503 带 Retry-After 提示客户端按刷新周期退避。
func (s *HTTPServer) respondError(c *gin.Context, resp *httperrors.Response) {
	if resp.TraceID == "" {
		resp.WithTrace(observability.TraceID(c.Request.Context()))
	}
	if resp.Code == http.StatusServiceUnavailable {
		c.Header("Retry-After", strconv.Itoa(int(s.cfg.Dashboard.RefreshInterval.Seconds())))
	}
	c.JSON(resp.Code, resp)
}

// handleServiceError 处理服务层错误
func (s *HTTPServer) handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrTenantRequired):
		s.respondError(c, httperrors.TenantRequired())
	case errors.Is(err, domain.ErrInvalidTimeRange),
		errors.Is(err, domain.ErrUnknownViewMode),
		errors.Is(err, domain.ErrInvalidReportType),
		errors.Is(err, domain.ErrInvalidReportFormat),
		errors.Is(err, domain.ErrInvalidCapacityProfile):
		s.respondError(c, httperrors.BadRequest(err.Error()))
	case errors.Is(err, domain.ErrReportNotFound),
		errors.Is(err, domain.ErrCapacityProfileNotFound):
		s.respondError(c, httperrors.NotFound(err.Error()))
	case errors.Is(err, domain.ErrSnapshotUnavailable):
		s.respondError(c, httperrors.Unavailable(err.Error()))
	default:
		s.logger.Error("Service error", zap.Error(err))
		s.respondError(c, httperrors.FromError(err))
	}
}

// requireTenant 取出已解析的租户，缺失时响应 400
func (s *HTTPServer) requireTenant(c *gin.Context) (string, bool) {
	tenantID := middleware.TenantFrom(c)
	if tenantID == "" {
		s.respondError(c, httperrors.TenantRequired())
		return "", false
	}
	return tenantID, true
}

// parseRangeQuery 解析 range/start/end 查询参数，仅 custom 需要日期对
func (s *HTTPServer) parseRangeQuery(c *gin.Context) (preset string, start, end time.Time, err error) {
	preset = c.DefaultQuery("range", string(domain.RangeToday))
	if preset != string(domain.RangeCustom) {
		return preset, time.Time{}, time.Time{}, nil
	}

	startStr := c.Query("start")
	endStr := c.Query("end")
	if startStr == "" || endStr == "" {
		return "", time.Time{}, time.Time{}, errors.New("custom range requires start and end")
	}

	if start, err = parseDate(startStr); err != nil {
		return "", time.Time{}, time.Time{}, errors.New("invalid start date, expected YYYY-MM-DD or RFC3339")
	}
	if end, err = parseDate(endStr); err != nil {
		return "", time.Time{}, time.Time{}, errors.New("invalid end date, expected YYYY-MM-DD or RFC3339")
	}
	if end.Before(start) {
		return "", time.Time{}, time.Time{}, errors.New("end date must not be before start date")
	}

	return preset, start, end, nil
}

// parseDate 支持日期或 RFC3339 两种格式
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
