package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	klog "github.com/go-kratos/kratos/v2/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	_ "go.uber.org/automaxprocs"
	"go.uber.org/zap"

	"voicedash/cmd/dashboard-service/internal/biz"
	"voicedash/cmd/dashboard-service/internal/conf"
	"voicedash/cmd/dashboard-service/internal/data"
	"voicedash/pkg/discovery"
	"voicedash/pkg/events"
	"voicedash/pkg/observability"
)

var configFile = flag.String("config", "", "配置文件路径")

func main() {
	flag.Parse()

	// 加载配置
	config, err := conf.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	logger, err := initLogger(config.Observability)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	// biz 与 data 层使用 kratos 日志
	klogger := klog.With(klog.NewStdLogger(os.Stdout),
		"ts", klog.DefaultTimestamp,
		"caller", klog.DefaultCaller,
		"service.name", config.Observability.ServiceName,
	)

	logger.Info("Starting Dashboard Service",
		zap.String("version", config.Observability.ServiceVersion),
		zap.String("environment", config.Observability.Environment),
		zap.String("source_mode", config.Dashboard.SourceMode),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 链路追踪
	if config.Observability.EnableTrace {
		shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfig{
			ServiceName:    config.Observability.ServiceName,
			ServiceVersion: config.Observability.ServiceVersion,
			Environment:    config.Observability.Environment,
			Endpoint:       config.Observability.OTELEndpoint,
			Protocol:       config.Observability.OTELProtocol,
			SamplingRate:   config.Observability.SampleRatio,
			Enabled:        true,
		})
		if err != nil {
			logger.Error("Failed to init tracing", zap.Error(err))
		} else {
			defer shutdownTracing(context.Background())
		}
	}

	// 初始化应用（通过 Wire 生成）
	app, cleanup, err := initApp(config, logger, klogger)
	if err != nil {
		logger.Fatal("Failed to initialize app", zap.Error(err))
	}
	defer cleanup()

	// WebSocket 常驻循环
	go app.Hub.Run(ctx)
	go app.Broadcaster.Run(ctx)

	// 呼叫事件摄入
	if config.Kafka.Enabled {
		consumer, err := startIngest(ctx, config, app, klogger)
		if err != nil {
			logger.Fatal("Failed to start call event ingest", zap.Error(err))
		}
		defer consumer.Close()
	}

	// 服务注册
	if config.Discovery.Enabled {
		deregister, err := registerService(config)
		if err != nil {
			logger.Error("Failed to register service", zap.Error(err))
		} else {
			defer deregister()
		}
	}

	// 启动 HTTP 服务器
	go func() {
		logger.Info("HTTP server starting", zap.Int("port", config.Server.HTTPPort))
		if err := app.Server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// 启动 Prometheus metrics 服务器
	metricsSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", config.Server.MetricsPort),
		Handler: promhttp.Handler(),
	}
	go func() {
		logger.Info("Metrics server starting", zap.Int("port", config.Server.MetricsPort))
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Metrics server failed", zap.Error(err))
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down servers...")

	// 先停推送与摄入循环，再优雅关闭服务器
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.Server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", zap.Error(err))
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Metrics server shutdown failed", zap.Error(err))
	}

	logger.Info("Servers exited")
}

// startIngest 组装摄入链路：Kafka 消费 -> 实时计数器与历史记录写入
// 配置校验保证 Kafka 摄入只在 live 模式启用，Redis 与 ClickHouse 均已打开。
func startIngest(ctx context.Context, config *conf.Config, app *AppComponents, logger klog.Logger) (*events.KafkaConsumer, error) {
	ingest := biz.NewIngestUsecase(
		data.NewRedisLiveStore(app.Data.Redis, app.Capacity),
		data.NewClickHouseHistory(app.Data.ClickHouse),
		logger,
	)
	go ingest.Run(ctx)

	consumerCfg := events.DefaultConsumerConfig(config.Kafka.GroupID)
	if len(config.Kafka.Brokers) > 0 {
		consumerCfg.Brokers = config.Kafka.Brokers
	}
	consumer, err := events.NewKafkaConsumer(consumerCfg, logger)
	if err != nil {
		return nil, err
	}

	handler := events.NewFunctionHandler(
		[]string{events.EventCallStarted, events.EventCallEnded},
		ingest.HandleEvent,
	)
	if err := consumer.Subscribe(ctx, []string{config.Kafka.Topic}, handler); err != nil {
		consumer.Close()
		return nil, err
	}
	return consumer, nil
}

// registerService 注册到 Consul 并返回注销函数
func registerService(config *conf.Config) (func(), error) {
	registry, err := discovery.NewConsulRegistry(&discovery.ConsulConfig{
		Address: config.Discovery.ConsulAddr,
		Scheme:  "http",
	})
	if err != nil {
		return nil, err
	}

	name := config.Discovery.ServiceName
	if name == "" {
		name = "dashboard-service"
	}
	host := config.Discovery.ServiceHost
	hostname, _ := os.Hostname()
	if host == "" {
		host = hostname
	}
	serviceID := fmt.Sprintf("%s-%s-%d", name, hostname, config.Server.HTTPPort)

	reg := &discovery.ServiceRegistration{
		ID:                             serviceID,
		Name:                           name,
		Address:                        host,
		Port:                           config.Server.HTTPPort,
		Tags:                           []string{"http", "dashboard"},
		HealthCheckPath:                "/health",
		HealthCheckInterval:            "10s",
		HealthCheckTimeout:             "5s",
		DeregisterCriticalServiceAfter: "1m",
	}
	if err := registry.Register(reg); err != nil {
		return nil, err
	}

	return func() {
		if err := registry.Deregister(serviceID); err != nil {
			log.Printf("Failed to deregister service: %v", err)
		}
	}, nil
}

// initLogger 初始化日志
func initLogger(cfg conf.ObservabilityConfig) (*zap.Logger, error) {
	var zapConfig zap.Config

	if cfg.LogFormat == "json" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}

	// 设置日志级别
	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	zapConfig.Level = level

	// 添加字段
	zapConfig.InitialFields = map[string]interface{}{
		"service":     cfg.ServiceName,
		"version":     cfg.ServiceVersion,
		"environment": cfg.Environment,
	}

	return zapConfig.Build()
}
