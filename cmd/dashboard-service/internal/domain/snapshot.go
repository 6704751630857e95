package domain

import "time"

// LiveSnapshot 实时运营快照（当前时刻有效，不持久化）
type LiveSnapshot struct {
	TenantID       string
	ActiveCalls    int
	QueueSize      int
	CallsToday     int
	CallsPerHour   int
	CapacityPct    float64
	AvgWaitSeconds float64
	Timestamp      time.Time
}

// KPIStats 核心指标原始测量值（派生字段由用例层计算）
type KPIStats struct {
	TenantID       string
	ContainmentPct float64
	FCRPct         float64
	AHTMinutes     float64
	CallsToday     int64
	CallsYesterday int64
	Range          TimeRange
}

// KPISnapshot 含派生字段的完整 KPI 快照
type KPISnapshot struct {
	KPIStats
	ContainmentTarget float64
	FCRTarget         float64
	AHTTargetMinutes  float64
	AIResolved        int64
	Escalated         int64
	CostSavings       float64
	Currency          string
	CallsDeltaPct     float64
	AHTGaugeScore     float64
	AHTGaugeTarget    float64
}

// BreakdownKind 分类统计维度
type BreakdownKind string

const (
	BreakdownLanguage   BreakdownKind = "language"   // 语言分布
	BreakdownIntent     BreakdownKind = "intent"     // 意图分布
	BreakdownResolution BreakdownKind = "resolution" // 处理结果分布
)

// CategoryCount 单个分类的计数（顺序即展示顺序）
type CategoryCount struct {
	Label string
	Count int64
	Pct   float64
}

// Breakdown 分类统计结果
type Breakdown struct {
	TenantID string
	Kind     BreakdownKind
	Items    []CategoryCount
	Total    int64
}

// HourlyVolume 按小时的呼叫量（今日未来小时为零）
type HourlyVolume struct {
	Hour      int
	Today     int64
	Yesterday int64
}

// DailyVolume 按天的呼叫量及 AI 闭环量
type DailyVolume struct {
	Date      time.Time
	Total     int64
	Contained int64
}

// ViewMode 看板视图模式
type ViewMode string

const (
	ViewDesktop ViewMode = "desktop" // 桌面版（标签页布局）
	ViewTV      ViewMode = "tv"      // 大屏版（电视墙）
)

// ParseViewMode 解析视图模式，空值回退到桌面版
func ParseViewMode(s string) (ViewMode, error) {
	switch s {
	case "", string(ViewDesktop):
		return ViewDesktop, nil
	case string(ViewTV):
		return ViewTV, nil
	default:
		return "", ErrUnknownViewMode
	}
}

// Summary 看板完整载荷（单次采集产出，随采集丢弃）
type Summary struct {
	TenantID    string
	Mode        ViewMode
	Live        *LiveSnapshot
	KPIs        *KPISnapshot
	Hourly      []HourlyVolume
	Daily       []DailyVolume
	Languages   *Breakdown
	Intents     *Breakdown
	Resolutions *Breakdown
	QueueAlert  bool
	GeneratedAt time.Time
}
