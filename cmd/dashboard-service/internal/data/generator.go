package data

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"voicedash/cmd/dashboard-service/internal/domain"
)

// 合成数据的日内节律参数
const (
	businessHourStart = 9
	businessHourEnd   = 18

	baseDailyCalls = 4500
)

// Generator 合成指标来源（缺省数据源）
// 同时实现 domain.LiveSource 与 domain.HistorySource。数值按工作时段
// 加权取样，模拟真实呼叫中心的日内节律；rand.Rand 非并发安全，采集
// 链路会并发取数，这里用互斥锁串行化。
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// NewGenerator 创建合成来源，seed 为 0 时按当前时间播种
func NewGenerator(seed int64) *Generator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{
		rng: rand.New(rand.NewSource(seed)),
		now: time.Now,
	}
}

// NewGeneratorWithClock 注入时钟的构造器，测试用
func NewGeneratorWithClock(seed int64, now func() time.Time) *Generator {
	g := NewGenerator(seed)
	g.now = now
	return g
}

// loadFactor 工作时段负载系数
func (g *Generator) loadFactor(t time.Time) float64 {
	hour := t.Hour()
	if hour >= businessHourStart && hour <= businessHourEnd {
		return 1.0 + g.uniform(0.1, 0.3)
	}
	return 0.4 + g.uniform(0.1, 0.2)
}

func (g *Generator) uniform(min, max float64) float64 {
	return min + g.rng.Float64()*(max-min)
}

func (g *Generator) between(min, max int) int {
	return min + g.rng.Intn(max-min+1)
}

// Snapshot 生成当前时刻的运营快照
func (g *Generator) Snapshot(ctx context.Context, tenantID string) (*domain.LiveSnapshot, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	mult := g.loadFactor(now)

	return &domain.LiveSnapshot{
		TenantID:       tenantID,
		ActiveCalls:    int(float64(g.between(80, 180)) * mult),
		QueueSize:      g.between(5, 35),
		CallsToday:     int(baseDailyCalls * mult),
		CallsPerHour:   int(float64(g.between(200, 450)) * mult),
		CapacityPct:    g.uniform(45, 85),
		AvgWaitSeconds: g.uniform(8, 45),
		Timestamp:      now,
	}, nil
}

// KPIStats 生成时间范围内的核心指标测量值
func (g *Generator) KPIStats(ctx context.Context, tenantID string, rng domain.TimeRange) (*domain.KPIStats, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	return &domain.KPIStats{
		TenantID:       tenantID,
		ContainmentPct: g.uniform(68, 78),
		FCRPct:         g.uniform(65, 75),
		AHTMinutes:     g.uniform(4.5, 7.5),
		CallsToday:     int64(g.between(4000, 5500)),
		CallsYesterday: int64(g.between(4000, 5500)),
		Range:          rng,
	}, nil
}

// HourlyVolume 生成指定日期的 24 小时呼叫量，今日的未来小时置零
func (g *Generator) HourlyVolume(ctx context.Context, tenantID string, day time.Time) ([]domain.HourlyVolume, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	sameDay := day.Year() == now.Year() && day.YearDay() == now.YearDay()

	hours := make([]domain.HourlyVolume, 24)
	for h := 0; h < 24; h++ {
		var base, jitter int
		if h >= businessHourStart && h <= businessHourEnd {
			base, jitter = 350, 100
		} else {
			base, jitter = 150, 50
		}

		today := int64(base + g.between(-jitter, jitter))
		yesterday := int64(base + g.between(-jitter, jitter))
		if sameDay && h > now.Hour() {
			today = 0
		}

		hours[h] = domain.HourlyVolume{Hour: h, Today: today, Yesterday: yesterday}
	}
	return hours, nil
}

// DailyVolume 生成最近 days 天的按日呼叫量
func (g *Generator) DailyVolume(ctx context.Context, tenantID string, days int) ([]domain.DailyVolume, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	today := g.now()
	out := make([]domain.DailyVolume, 0, days)
	for i := days - 1; i >= 0; i-- {
		total := int64(g.between(5500, 7500))
		contained := int64(float64(total) * g.uniform(0.68, 0.78))
		out = append(out, domain.DailyVolume{
			Date:      time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, today.Location()).AddDate(0, 0, -i),
			Total:     total,
			Contained: contained,
		})
	}
	return out, nil
}

// Breakdown 生成分类统计
func (g *Generator) Breakdown(ctx context.Context, tenantID string, kind domain.BreakdownKind, rng domain.TimeRange) (*domain.Breakdown, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var items []domain.CategoryCount
	switch kind {
	case domain.BreakdownLanguage:
		teluguPct := g.uniform(52, 62)
		hindiPct := g.uniform(22, 30)
		englishPct := 100 - teluguPct - hindiPct
		items = []domain.CategoryCount{
			{Label: "Telugu", Count: int64(baseDailyCalls * teluguPct / 100)},
			{Label: "Hindi", Count: int64(baseDailyCalls * hindiPct / 100)},
			{Label: "English", Count: int64(baseDailyCalls * englishPct / 100)},
		}
	case domain.BreakdownIntent:
		items = []domain.CategoryCount{
			{Label: "Bill Inquiry", Count: int64(g.between(800, 1200))},
			{Label: "Outage Status", Count: int64(g.between(600, 900))},
			{Label: "Payment Confirmation", Count: int64(g.between(400, 600))},
			{Label: "Complaint Status", Count: int64(g.between(300, 500))},
			{Label: "New Connection", Count: int64(g.between(200, 400))},
		}
	case domain.BreakdownResolution:
		items = []domain.CategoryCount{
			{Label: "AI Resolved", Count: int64(g.between(3000, 4000))},
			{Label: "Human Escalation", Count: int64(g.between(800, 1200))},
			{Label: "Abandoned", Count: int64(g.between(100, 200))},
			{Label: "Transferred", Count: int64(g.between(50, 150))},
		}
	default:
		return nil, domain.ErrSnapshotUnavailable
	}

	var total int64
	for _, it := range items {
		total += it.Count
	}
	for i := range items {
		if total > 0 {
			items[i].Pct = float64(items[i].Count) / float64(total) * 100
		}
	}

	return &domain.Breakdown{
		TenantID: tenantID,
		Kind:     kind,
		Items:    items,
		Total:    total,
	}, nil
}
