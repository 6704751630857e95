package main

import (
	"context"
	"encoding/json"

	"github.com/go-kratos/kratos/v2/log"
	"go.uber.org/zap"

	"voicedash/cmd/dashboard-service/internal/conf"
	"voicedash/cmd/dashboard-service/internal/data"
	"voicedash/cmd/dashboard-service/internal/domain"
	"voicedash/cmd/dashboard-service/internal/middleware"
	"voicedash/cmd/dashboard-service/internal/server"
	"voicedash/cmd/dashboard-service/internal/service"
	"voicedash/cmd/dashboard-service/internal/websocket"
	"voicedash/pkg/auth"
	"voicedash/pkg/health"
)

// provideLayout 加载看板布局，未配置布局文件时使用内置缺省
func provideLayout(cfg *conf.Config) (*conf.Layout, error) {
	return conf.LoadLayout(cfg.Dashboard.LayoutFile)
}

// provideHub 创建 WebSocket 连接管理器
func provideHub(logger log.Logger) *websocket.Hub {
	return websocket.NewHub(logger, nil)
}

// provideSummaryBuilder 构造推送负载：按订阅组取汇总快照并序列化
func provideSummaryBuilder(svc *service.DashboardService) websocket.PayloadBuilder {
	return websocket.PayloadBuilderFunc(func(ctx context.Context, tenantID string, mode domain.ViewMode) ([]byte, error) {
		summary, err := svc.Summary(ctx, tenantID, string(mode))
		if err != nil {
			return nil, err
		}
		return json.Marshal(summary)
	})
}

// provideBroadcaster 创建周期推送器，推送间隔与看板刷新周期一致
func provideBroadcaster(
	hub *websocket.Hub,
	builder websocket.PayloadBuilder,
	cfg *conf.Config,
	logger log.Logger,
) *websocket.Broadcaster {
	return websocket.NewBroadcaster(hub, builder, cfg.Dashboard.RefreshInterval, logger)
}

// provideJWTManager 创建 JWT 管理器，附带大屏密钥校验器
func provideJWTManager(cfg *conf.Config, logger log.Logger) *middleware.JWTManager {
	keys := make([]auth.DisplayKey, 0, len(cfg.Auth.DisplayKeys))
	for _, k := range cfg.Auth.DisplayKeys {
		keys = append(keys, auth.DisplayKey{TenantID: k.TenantID, Hash: k.KeyHash})
	}

	return middleware.NewJWTManager(&middleware.JWTConfig{
		SecretKey:     cfg.Auth.JWTSecret,
		TokenDuration: cfg.Auth.JWTExpiry,
		SkipPaths:     []string{"/health", "/ready", "/metrics"},
		APIKeyHeader:  cfg.Auth.APIKeyHeader,
		DisplayKeys:   auth.NewDisplayKeyVerifier(keys),
	}, logger)
}

// provideRateLimiter 创建限流器，mock 模式下无 Redis 时自动退化为放行
func provideRateLimiter(cfg *conf.Config, d *data.Data, logger log.Logger) *middleware.RateLimiter {
	return middleware.NewRateLimiter(d.Redis, cfg.Resilience.RateLimit, logger)
}

// provideIdempotency 创建写请求幂等中间件，无 Redis 时不做幂等检查
func provideIdempotency(d *data.Data, logger log.Logger) *middleware.Idempotency {
	return middleware.NewIdempotency(d.Redis, logger)
}

// provideHealthRegistry 注册已启用后端的健康检查
func provideHealthRegistry(cfg *conf.Config, d *data.Data) *health.Registry {
	registry := health.NewRegistry()

	if d.SQLDB != nil {
		registry.Register(health.NewPingChecker("postgres", cfg.Resilience.Timeout.Query, d.SQLDB.PingContext))
	}
	if d.Redis != nil {
		registry.Register(health.NewPingChecker("redis", cfg.Resilience.Timeout.Query, func(ctx context.Context) error {
			return d.Redis.Ping(ctx).Err()
		}))
	}
	if d.ClickHouse != nil {
		registry.Register(health.NewPingChecker("clickhouse", cfg.Resilience.Timeout.Query, d.ClickHouse.Ping))
	}

	return registry
}

// provideServerLogger 以 zap 实现 server 层日志接口
func provideServerLogger(logger *zap.Logger) server.Logger {
	return logger
}
