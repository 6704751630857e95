//go:build wireinject
// +build wireinject

package main

import (
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
	"go.uber.org/zap"

	"voicedash/cmd/dashboard-service/internal/biz"
	"voicedash/cmd/dashboard-service/internal/conf"
	"voicedash/cmd/dashboard-service/internal/data"
	"voicedash/cmd/dashboard-service/internal/domain"
	"voicedash/cmd/dashboard-service/internal/server"
	"voicedash/cmd/dashboard-service/internal/service"
	"voicedash/cmd/dashboard-service/internal/websocket"
)

// AppComponents 包含应用组件和资源
type AppComponents struct {
	Server      *server.HTTPServer
	Hub         *websocket.Hub
	Broadcaster *websocket.Broadcaster
	Data        *data.Data
	Capacity    domain.CapacityRepository
}

// initApp 初始化应用
func initApp(cfg *conf.Config, zlogger *zap.Logger, logger log.Logger) (*AppComponents, func(), error) {
	panic(wire.Build(
		// Data 层
		data.NewData,
		data.NewCapacityStore,
		data.NewReportStore,
		data.NewSources,
		data.NewSnapshotCache,
		data.NewReportUploader,

		// Biz 层
		biz.NewDashboardUsecase,
		biz.NewReportGenerator,
		biz.NewReportUsecase,

		// Service 层
		provideLayout,
		service.NewDashboardService,

		// WebSocket 推送
		provideHub,
		provideSummaryBuilder,
		provideBroadcaster,

		// Server 层
		provideJWTManager,
		provideRateLimiter,
		provideIdempotency,
		provideHealthRegistry,
		provideServerLogger,
		server.NewHTTPServer,

		// 组装 AppComponents
		wire.Struct(new(AppComponents), "*"),
	))
}
