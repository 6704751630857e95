package domain

import (
	"context"
	"time"
)

// LiveSource 实时运营指标来源
type LiveSource interface {
	// Snapshot 获取当前时刻的运营快照
	Snapshot(ctx context.Context, tenantID string) (*LiveSnapshot, error)
}

// HistorySource 历史聚合指标来源
type HistorySource interface {
	// KPIStats 获取时间范围内的核心指标原始测量值
	KPIStats(ctx context.Context, tenantID string, rng TimeRange) (*KPIStats, error)

	// HourlyVolume 获取指定日期的 24 小时呼叫量（含前一日对比列）
	HourlyVolume(ctx context.Context, tenantID string, day time.Time) ([]HourlyVolume, error)

	// DailyVolume 获取最近 days 天的按日呼叫量
	DailyVolume(ctx context.Context, tenantID string, days int) ([]DailyVolume, error)

	// Breakdown 获取时间范围内的分类统计
	Breakdown(ctx context.Context, tenantID string, kind BreakdownKind, rng TimeRange) (*Breakdown, error)
}

// CallRecordStore 呼叫记录存储接口（摄入侧写入）
type CallRecordStore interface {
	// InsertRecords 批量写入已结束呼叫记录
	InsertRecords(ctx context.Context, records []*CallRecord) error
}

// LiveCounterStore 实时计数器写入接口（摄入侧写入）
type LiveCounterStore interface {
	// RecordStarted 呼叫开始：活跃数加一并更新排队深度
	RecordStarted(ctx context.Context, tenantID string, at time.Time, queueDepth int) error

	// RecordEnded 呼叫结束：活跃数减一并累计当日与时段计数
	RecordEnded(ctx context.Context, tenantID string, at time.Time, waitSeconds float64) error
}

// CapacityRepository 租户容量档案仓储接口
type CapacityRepository interface {
	// GetProfile 获取租户容量档案
	GetProfile(ctx context.Context, tenantID string) (*CapacityProfile, error)

	// UpsertProfile 写入或更新容量档案
	UpsertProfile(ctx context.Context, profile *CapacityProfile) error
}

// ReportRepository 报表仓储接口
type ReportRepository interface {
	// CreateReport 创建报表
	CreateReport(ctx context.Context, report *Report) error

	// GetReport 获取报表
	GetReport(ctx context.Context, id string) (*Report, error)

	// UpdateReport 更新报表
	UpdateReport(ctx context.Context, report *Report) error

	// ListReports 列出报表
	ListReports(ctx context.Context, tenantID string, limit, offset int) ([]*Report, int, error)

	// DeleteReport 删除报表
	DeleteReport(ctx context.Context, id string) error
}
