package data

import (
	"context"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/sony/gobreaker"

	"voicedash/cmd/dashboard-service/internal/conf"
	"voicedash/cmd/dashboard-service/internal/domain"
)

// ResilientLiveSource 带熔断的实时来源
// 真实后端失败或熔断时回退到合成数据，看板保持可用。
type ResilientLiveSource struct {
	primary  domain.LiveSource
	fallback domain.LiveSource
	breaker  *gobreaker.CircuitBreaker
	log      *log.Helper
}

// NewResilientLiveSource 创建带熔断的实时来源
func NewResilientLiveSource(
	primary domain.LiveSource,
	fallback domain.LiveSource,
	cfg conf.CircuitBreakerConfig,
	logger log.Logger,
) *ResilientLiveSource {
	logHelper := log.NewHelper(log.With(logger, "module", "resilient-live-source"))
	return &ResilientLiveSource{
		primary:  primary,
		fallback: fallback,
		breaker:  newBreaker("live-source", cfg, logHelper),
		log:      logHelper,
	}
}

// Snapshot 获取实时快照，主来源不可用时回退
func (s *ResilientLiveSource) Snapshot(ctx context.Context, tenantID string) (*domain.LiveSnapshot, error) {
	v, err := s.breaker.Execute(func() (interface{}, error) {
		return s.primary.Snapshot(ctx, tenantID)
	})
	if err != nil {
		s.log.WithContext(ctx).Warnf("live source degraded, serving synthetic snapshot: %v", err)
		return s.fallback.Snapshot(ctx, tenantID)
	}
	return v.(*domain.LiveSnapshot), nil
}

// ResilientHistorySource 带熔断的历史来源
// 四类查询共用一个熔断器，ClickHouse 整体不可用时一并退避。
type ResilientHistorySource struct {
	primary  domain.HistorySource
	fallback domain.HistorySource
	breaker  *gobreaker.CircuitBreaker
	log      *log.Helper
}

// NewResilientHistorySource 创建带熔断的历史来源
func NewResilientHistorySource(
	primary domain.HistorySource,
	fallback domain.HistorySource,
	cfg conf.CircuitBreakerConfig,
	logger log.Logger,
) *ResilientHistorySource {
	logHelper := log.NewHelper(log.With(logger, "module", "resilient-history-source"))
	return &ResilientHistorySource{
		primary:  primary,
		fallback: fallback,
		breaker:  newBreaker("history-source", cfg, logHelper),
		log:      logHelper,
	}
}

// KPIStats 获取核心指标测量值
func (s *ResilientHistorySource) KPIStats(ctx context.Context, tenantID string, rng domain.TimeRange) (*domain.KPIStats, error) {
	v, err := s.breaker.Execute(func() (interface{}, error) {
		return s.primary.KPIStats(ctx, tenantID, rng)
	})
	if err != nil {
		s.log.WithContext(ctx).Warnf("history source degraded for kpi stats: %v", err)
		return s.fallback.KPIStats(ctx, tenantID, rng)
	}
	return v.(*domain.KPIStats), nil
}

// HourlyVolume 获取按小时呼叫量
func (s *ResilientHistorySource) HourlyVolume(ctx context.Context, tenantID string, day time.Time) ([]domain.HourlyVolume, error) {
	v, err := s.breaker.Execute(func() (interface{}, error) {
		return s.primary.HourlyVolume(ctx, tenantID, day)
	})
	if err != nil {
		s.log.WithContext(ctx).Warnf("history source degraded for hourly volume: %v", err)
		return s.fallback.HourlyVolume(ctx, tenantID, day)
	}
	return v.([]domain.HourlyVolume), nil
}

// DailyVolume 获取按日呼叫量
func (s *ResilientHistorySource) DailyVolume(ctx context.Context, tenantID string, days int) ([]domain.DailyVolume, error) {
	v, err := s.breaker.Execute(func() (interface{}, error) {
		return s.primary.DailyVolume(ctx, tenantID, days)
	})
	if err != nil {
		s.log.WithContext(ctx).Warnf("history source degraded for daily volume: %v", err)
		return s.fallback.DailyVolume(ctx, tenantID, days)
	}
	return v.([]domain.DailyVolume), nil
}

// Breakdown 获取分类统计
func (s *ResilientHistorySource) Breakdown(ctx context.Context, tenantID string, kind domain.BreakdownKind, rng domain.TimeRange) (*domain.Breakdown, error) {
	v, err := s.breaker.Execute(func() (interface{}, error) {
		return s.primary.Breakdown(ctx, tenantID, kind, rng)
	})
	if err != nil {
		s.log.WithContext(ctx).Warnf("history source degraded for %s breakdown: %v", kind, err)
		return s.fallback.Breakdown(ctx, tenantID, kind, rng)
	}
	return v.(*domain.Breakdown), nil
}

// newBreaker 按配置创建熔断器，零值字段使用默认参数
func newBreaker(name string, cfg conf.CircuitBreakerConfig, logHelper *log.Helper) *gobreaker.CircuitBreaker {
	maxRequests := cfg.MaxRequests
	if maxRequests == 0 {
		maxRequests = 3
	}
	interval := cfg.Interval
	if interval == 0 {
		interval = 10 * time.Second
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	threshold := cfg.Threshold
	if threshold == 0 {
		threshold = 0.5
	}
	minRequests := cfg.MinRequests
	if minRequests == 0 {
		minRequests = 3
	}

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: maxRequests,
		Interval:    interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < minRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= threshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logHelper.Infof("circuit breaker %s: %s -> %s", name, from, to)
		},
	})
}
