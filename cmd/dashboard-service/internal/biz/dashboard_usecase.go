package biz

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-kratos/kratos/v2/log"

	"voicedash/cmd/dashboard-service/internal/conf"
	"voicedash/cmd/dashboard-service/internal/domain"
)

// DashboardUsecase 看板用例：聚合实时快照、KPI 与图表数据
type DashboardUsecase struct {
	live    domain.LiveSource
	history domain.HistorySource
	caps    domain.CapacityRepository
	cache   SnapshotCache
	cfg     *conf.Config
	log     *log.Helper
	now     func() time.Time
}

// NewDashboardUsecase 创建看板用例
func NewDashboardUsecase(
	live domain.LiveSource,
	history domain.HistorySource,
	caps domain.CapacityRepository,
	cache SnapshotCache,
	cfg *conf.Config,
	logger log.Logger,
) *DashboardUsecase {
	return &DashboardUsecase{
		live:    live,
		history: history,
		caps:    caps,
		cache:   cache,
		cfg:     cfg,
		log:     log.NewHelper(logger),
		now:     time.Now,
	}
}

// Live 获取实时运营快照
func (uc *DashboardUsecase) Live(ctx context.Context, tenantID string) (*domain.LiveSnapshot, error) {
	if tenantID == "" {
		return nil, domain.ErrTenantRequired
	}

	// 1. 尝试从缓存获取
	cacheKey := fmt.Sprintf("dashboard:live:%s", tenantID)
	cached := &domain.LiveSnapshot{}
	if uc.cached(ctx, cacheKey, cached) {
		return cached, nil
	}

	// 2. 从实时来源采集
	snap, err := uc.live.Snapshot(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	uc.store(ctx, cacheKey, snap, uc.cfg.Cache.LiveTTL)
	return snap, nil
}

// KPIs 获取时间范围内的 KPI 快照（含派生指标）
func (uc *DashboardUsecase) KPIs(ctx context.Context, tenantID string, rng domain.TimeRange) (*domain.KPISnapshot, error) {
	if tenantID == "" {
		return nil, domain.ErrTenantRequired
	}

	cacheKey := fmt.Sprintf("dashboard:kpis:%s:%s:%d:%d", tenantID, rng.Preset, rng.Start.Unix(), rng.End.Unix())
	cached := &domain.KPISnapshot{}
	if uc.cached(ctx, cacheKey, cached) {
		return cached, nil
	}

	stats, err := uc.history.KPIStats(ctx, tenantID, rng)
	if err != nil {
		return nil, err
	}
	snap := stats.Derive(uc.profile(ctx, tenantID))

	uc.store(ctx, cacheKey, snap, uc.cfg.Cache.KPITTL)
	return snap, nil
}

// Hourly 获取今日与昨日对比的 24 小时呼叫量
func (uc *DashboardUsecase) Hourly(ctx context.Context, tenantID string) ([]domain.HourlyVolume, error) {
	if tenantID == "" {
		return nil, domain.ErrTenantRequired
	}
	return uc.history.HourlyVolume(ctx, tenantID, uc.now())
}

// Daily 获取最近 days 天的呼叫量趋势，days 为 0 时使用配置默认值
func (uc *DashboardUsecase) Daily(ctx context.Context, tenantID string, days int) ([]domain.DailyVolume, error) {
	if tenantID == "" {
		return nil, domain.ErrTenantRequired
	}
	if days <= 0 {
		days = uc.cfg.Dashboard.TrendDays
	}
	if days > 90 {
		days = 90
	}
	return uc.history.DailyVolume(ctx, tenantID, days)
}

// Breakdown 获取时间范围内的分类统计
func (uc *DashboardUsecase) Breakdown(ctx context.Context, tenantID string, kind domain.BreakdownKind, rng domain.TimeRange) (*domain.Breakdown, error) {
	if tenantID == "" {
		return nil, domain.ErrTenantRequired
	}

	cacheKey := fmt.Sprintf("dashboard:breakdown:%s:%s:%s:%d:%d", tenantID, kind, rng.Preset, rng.Start.Unix(), rng.End.Unix())
	cached := &domain.Breakdown{}
	if uc.cached(ctx, cacheKey, cached) {
		return cached, nil
	}

	b, err := uc.history.Breakdown(ctx, tenantID, kind, rng)
	if err != nil {
		return nil, err
	}

	uc.store(ctx, cacheKey, b, uc.cfg.Cache.DefaultTTL)
	return b, nil
}

// Summary 聚合单页看板需要的全部数据块
// 各块并发采集，单块失败不拖垮整体，仅在全部失败时报错。
func (uc *DashboardUsecase) Summary(ctx context.Context, tenantID string, mode domain.ViewMode) (*domain.Summary, error) {
	if tenantID == "" {
		return nil, domain.ErrTenantRequired
	}

	// 1. 尝试从缓存获取
	cacheKey := fmt.Sprintf("dashboard:summary:%s:%s", tenantID, mode)
	cached := &domain.Summary{}
	if uc.cached(ctx, cacheKey, cached) {
		return cached, nil
	}

	now := uc.now()
	today, _ := domain.NewTimeRange(domain.RangeToday, time.Time{}, time.Time{}, now)
	profile := uc.profile(ctx, tenantID)

	// 2. 并发采集各数据块
	type result struct {
		key   string
		value interface{}
		err   error
	}

	resultChan := make(chan result, 8)

	go func() {
		snap, err := uc.live.Snapshot(ctx, tenantID)
		resultChan <- result{key: "live", value: snap, err: err}
	}()

	go func() {
		stats, err := uc.history.KPIStats(ctx, tenantID, today)
		resultChan <- result{key: "kpis", value: stats, err: err}
	}()

	go func() {
		hourly, err := uc.history.HourlyVolume(ctx, tenantID, now)
		resultChan <- result{key: "hourly", value: hourly, err: err}
	}()

	go func() {
		daily, err := uc.history.DailyVolume(ctx, tenantID, uc.cfg.Dashboard.TrendDays)
		resultChan <- result{key: "daily", value: daily, err: err}
	}()

	go func() {
		b, err := uc.history.Breakdown(ctx, tenantID, domain.BreakdownLanguage, today)
		resultChan <- result{key: "languages", value: b, err: err}
	}()

	go func() {
		b, err := uc.history.Breakdown(ctx, tenantID, domain.BreakdownIntent, today)
		resultChan <- result{key: "intents", value: b, err: err}
	}()

	go func() {
		b, err := uc.history.Breakdown(ctx, tenantID, domain.BreakdownResolution, today)
		resultChan <- result{key: "resolutions", value: b, err: err}
	}()

	summary := &domain.Summary{
		TenantID:    tenantID,
		Mode:        mode,
		GeneratedAt: now,
	}

	// 3. 收集结果，失败的块跳过
	var firstErr error
	for i := 0; i < 7; i++ {
		res := <-resultChan
		if res.err != nil {
			uc.log.WithContext(ctx).Warnf("summary block %s failed: %v", res.key, res.err)
			if firstErr == nil {
				firstErr = fmt.Errorf("collect %s: %w", res.key, res.err)
			}
			continue
		}

		switch res.key {
		case "live":
			summary.Live = res.value.(*domain.LiveSnapshot)
		case "kpis":
			summary.KPIs = res.value.(*domain.KPIStats).Derive(profile)
		case "hourly":
			summary.Hourly = res.value.([]domain.HourlyVolume)
		case "daily":
			summary.Daily = res.value.([]domain.DailyVolume)
		case "languages":
			summary.Languages = res.value.(*domain.Breakdown)
		case "intents":
			summary.Intents = res.value.(*domain.Breakdown)
		case "resolutions":
			summary.Resolutions = res.value.(*domain.Breakdown)
		}
	}

	if summary.Live == nil && summary.KPIs == nil {
		if firstErr != nil {
			return nil, firstErr
		}
		return nil, domain.ErrSnapshotUnavailable
	}

	if summary.Live != nil {
		summary.QueueAlert = summary.Live.QueueSize > profile.QueueAlertThreshold
	}

	// 4. 缓存结果
	uc.store(ctx, cacheKey, summary, uc.cfg.Cache.SummaryTTL)
	return summary, nil
}

// CapacityProfile 获取租户容量档案，未配置时返回默认档案
func (uc *DashboardUsecase) CapacityProfile(ctx context.Context, tenantID string) (*domain.CapacityProfile, error) {
	if tenantID == "" {
		return nil, domain.ErrTenantRequired
	}
	return uc.profile(ctx, tenantID), nil
}

// UpdateCapacityProfile 更新租户容量档案并失效相关缓存
func (uc *DashboardUsecase) UpdateCapacityProfile(ctx context.Context, profile *domain.CapacityProfile) error {
	if err := profile.Validate(); err != nil {
		return err
	}
	profile.UpdatedAt = uc.now()
	if err := uc.caps.UpsertProfile(ctx, profile); err != nil {
		return err
	}

	// 容量影响利用率与告警阈值，主动失效聚合缓存
	uc.invalidate(ctx, profile.TenantID)
	return nil
}

func (uc *DashboardUsecase) profile(ctx context.Context, tenantID string) *domain.CapacityProfile {
	p, err := uc.caps.GetProfile(ctx, tenantID)
	if err != nil {
		return domain.DefaultCapacityProfile(tenantID)
	}
	return p
}

// cached 反序列化缓存命中的 JSON，未命中或内容损坏返回 false
func (uc *DashboardUsecase) cached(ctx context.Context, key string, out interface{}) bool {
	data, err := uc.cache.GetBytes(ctx, key)
	if err != nil || data == nil {
		return false
	}
	return json.Unmarshal(data, out) == nil
}

func (uc *DashboardUsecase) store(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := uc.cache.SetBytes(ctx, key, data, ttl); err != nil {
		uc.log.WithContext(ctx).Warnf("cache set %s failed: %v", key, err)
	}
}

func (uc *DashboardUsecase) invalidate(ctx context.Context, tenantID string) {
	keys := []string{
		fmt.Sprintf("dashboard:live:%s", tenantID),
		fmt.Sprintf("dashboard:summary:%s:%s", tenantID, domain.ViewDesktop),
		fmt.Sprintf("dashboard:summary:%s:%s", tenantID, domain.ViewTV),
	}
	for _, key := range keys {
		_ = uc.cache.Delete(ctx, key)
	}
}
