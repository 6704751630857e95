package data

import (
	"context"
	"fmt"
	"time"

	"voicedash/cmd/dashboard-service/internal/domain"
)

// ClickHouseHistory ClickHouse 历史聚合来源
// 实现 domain.HistorySource 与 domain.CallRecordStore。
type ClickHouseHistory struct {
	ch  *ClickHouseClient
	now func() time.Time
}

// NewClickHouseHistory 创建 ClickHouse 历史来源
func NewClickHouseHistory(ch *ClickHouseClient) *ClickHouseHistory {
	return &ClickHouseHistory{ch: ch, now: time.Now}
}

// KPIStats 聚合时间范围内的核心指标
func (s *ClickHouseHistory) KPIStats(ctx context.Context, tenantID string, rng domain.TimeRange) (*domain.KPIStats, error) {
	query := `
		SELECT
			count() AS total,
			countIf(resolution = 'ai_resolved') AS contained,
			countIf(first_call_resolved = 1) AS fcr,
			sum(handle_seconds) AS handle_sec
		FROM call_events
		WHERE tenant_id = ? AND started_at >= ? AND started_at <= ?
	`

	var total, contained, fcr uint64
	var handleSec float64
	row := s.ch.QueryRow(ctx, query, tenantID, rng.Start, rng.End)
	if err := row.Scan(&total, &contained, &fcr, &handleSec); err != nil {
		return nil, fmt.Errorf("query kpi stats: %w", err)
	}

	// 昨日成交量单独取数，作环比基期
	prevQuery := `
		SELECT count()
		FROM call_events
		WHERE tenant_id = ? AND started_at >= ? AND started_at < ?
	`
	var prev uint64
	prevEnd := rng.Start
	prevStart := prevEnd.AddDate(0, 0, -1)
	if err := s.ch.QueryRow(ctx, prevQuery, tenantID, prevStart, prevEnd).Scan(&prev); err != nil {
		return nil, fmt.Errorf("query previous volume: %w", err)
	}

	return &domain.KPIStats{
		TenantID:       tenantID,
		ContainmentPct: domain.ContainmentRate(int64(contained), int64(total)),
		FCRPct:         domain.FirstCallResolution(int64(fcr), int64(total)),
		AHTMinutes:     domain.AverageHandleTime(handleSec/60, int64(total)),
		CallsToday:     int64(total),
		CallsYesterday: int64(prev),
		Range:          rng,
	}, nil
}

// HourlyVolume 按小时聚合指定日期与前一日的呼叫量
func (s *ClickHouseHistory) HourlyVolume(ctx context.Context, tenantID string, day time.Time) ([]domain.HourlyVolume, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	windowStart := dayStart.AddDate(0, 0, -1)
	windowEnd := dayStart.AddDate(0, 0, 1)

	query := `
		SELECT
			toHour(started_at) AS hour,
			countIf(started_at >= ?) AS today,
			countIf(started_at < ?) AS yesterday
		FROM call_events
		WHERE tenant_id = ? AND started_at >= ? AND started_at < ?
		GROUP BY hour
		ORDER BY hour
	`

	rows, err := s.ch.Query(ctx, query, dayStart, dayStart, tenantID, windowStart, windowEnd)
	if err != nil {
		return nil, fmt.Errorf("query hourly volume: %w", err)
	}
	defer rows.Close()

	hours := make([]domain.HourlyVolume, 24)
	for h := range hours {
		hours[h].Hour = h
	}
	for rows.Next() {
		var hour uint8
		var today, yesterday uint64
		if err := rows.Scan(&hour, &today, &yesterday); err != nil {
			return nil, fmt.Errorf("scan hourly volume: %w", err)
		}
		if int(hour) < len(hours) {
			hours[hour].Today = int64(today)
			hours[hour].Yesterday = int64(yesterday)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// 今日的未来小时清零，避免曲线尾部出现零星脏数据
	now := s.now()
	if dayStart.Year() == now.Year() && dayStart.YearDay() == now.YearDay() {
		for h := now.Hour() + 1; h < 24; h++ {
			hours[h].Today = 0
		}
	}
	return hours, nil
}

// DailyVolume 按天聚合最近 days 天的呼叫量
func (s *ClickHouseHistory) DailyVolume(ctx context.Context, tenantID string, days int) ([]domain.DailyVolume, error) {
	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	start := today.AddDate(0, 0, -(days - 1))

	query := `
		SELECT
			toDate(started_at) AS day,
			count() AS total,
			countIf(resolution = 'ai_resolved') AS contained
		FROM call_events
		WHERE tenant_id = ? AND started_at >= ?
		GROUP BY day
		ORDER BY day
	`

	rows, err := s.ch.Query(ctx, query, tenantID, start)
	if err != nil {
		return nil, fmt.Errorf("query daily volume: %w", err)
	}
	defer rows.Close()

	byDay := make(map[string]domain.DailyVolume, days)
	for rows.Next() {
		var day time.Time
		var total, contained uint64
		if err := rows.Scan(&day, &total, &contained); err != nil {
			return nil, fmt.Errorf("scan daily volume: %w", err)
		}
		byDay[day.Format("2006-01-02")] = domain.DailyVolume{
			Date:      day,
			Total:     int64(total),
			Contained: int64(contained),
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// 缺失的日期补零，保证曲线连续
	out := make([]domain.DailyVolume, 0, days)
	for i := 0; i < days; i++ {
		date := start.AddDate(0, 0, i)
		if v, ok := byDay[date.Format("2006-01-02")]; ok {
			v.Date = date
			out = append(out, v)
		} else {
			out = append(out, domain.DailyVolume{Date: date})
		}
	}
	return out, nil
}

// Breakdown 按维度聚合分类统计
func (s *ClickHouseHistory) Breakdown(ctx context.Context, tenantID string, kind domain.BreakdownKind, rng domain.TimeRange) (*domain.Breakdown, error) {
	var column string
	switch kind {
	case domain.BreakdownLanguage:
		column = "language"
	case domain.BreakdownIntent:
		column = "intent"
	case domain.BreakdownResolution:
		column = "resolution"
	default:
		return nil, domain.ErrSnapshotUnavailable
	}

	query := fmt.Sprintf(`
		SELECT %s AS label, count() AS cnt
		FROM call_events
		WHERE tenant_id = ? AND started_at >= ? AND started_at <= ?
		GROUP BY label
		ORDER BY cnt DESC
	`, column)

	rows, err := s.ch.Query(ctx, query, tenantID, rng.Start, rng.End)
	if err != nil {
		return nil, fmt.Errorf("query breakdown %s: %w", kind, err)
	}
	defer rows.Close()

	var items []domain.CategoryCount
	var total int64
	for rows.Next() {
		var label string
		var cnt uint64
		if err := rows.Scan(&label, &cnt); err != nil {
			return nil, fmt.Errorf("scan breakdown: %w", err)
		}
		if kind == domain.BreakdownResolution {
			label = domain.Resolution(label).Display()
		}
		items = append(items, domain.CategoryCount{Label: label, Count: int64(cnt)})
		total += int64(cnt)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range items {
		if total > 0 {
			items[i].Pct = float64(items[i].Count) / float64(total) * 100
		}
	}

	return &domain.Breakdown{TenantID: tenantID, Kind: kind, Items: items, Total: total}, nil
}

// InsertRecords 批量写入呼叫记录
func (s *ClickHouseHistory) InsertRecords(ctx context.Context, records []*domain.CallRecord) error {
	if len(records) == 0 {
		return nil
	}

	batch, err := s.ch.PrepareBatch(ctx, `
		INSERT INTO call_events (
			tenant_id, call_id, started_at, ended_at,
			language, intent, resolution, first_call_resolved,
			handle_seconds, wait_seconds
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare call_events batch: %w", err)
	}

	for _, rec := range records {
		fcr := uint8(0)
		if rec.FirstCallResolved {
			fcr = 1
		}
		if err := batch.Append(
			rec.TenantID, rec.CallID, rec.StartedAt, rec.EndedAt,
			rec.Language, rec.Intent, string(rec.Resolution), fcr,
			rec.HandleSeconds, rec.WaitSeconds,
		); err != nil {
			return fmt.Errorf("append call_events batch: %w", err)
		}
	}

	return batch.Send()
}
