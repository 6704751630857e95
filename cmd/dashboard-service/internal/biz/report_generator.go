package biz

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"voicedash/cmd/dashboard-service/internal/domain"
)

// ReportPayload 报表产物内容
type ReportPayload struct {
	TenantID    string               `json:"tenant_id"`
	ReportType  string               `json:"report_type"`
	RangeStart  string               `json:"range_start"`
	RangeEnd    string               `json:"range_end"`
	KPIs        ReportKPISection     `json:"kpis"`
	Daily       []ReportDailyRow     `json:"daily_volume"`
	Languages   []ReportBreakdownRow `json:"languages"`
	Intents     []ReportBreakdownRow `json:"intents"`
	Resolutions []ReportBreakdownRow `json:"resolutions"`
	GeneratedAt time.Time            `json:"generated_at"`
}

// ReportKPISection 报表 KPI 汇总段
type ReportKPISection struct {
	TotalCalls     int64   `json:"total_calls"`
	ContainmentPct float64 `json:"containment_pct"`
	FCRPct         float64 `json:"fcr_pct"`
	AHTMinutes     float64 `json:"aht_minutes"`
	AIResolved     int64   `json:"ai_resolved"`
	Escalated      int64   `json:"escalated"`
	CostSavings    float64 `json:"cost_savings"`
	Currency       string  `json:"currency"`
}

// ReportDailyRow 报表按日行
type ReportDailyRow struct {
	Date      string `json:"date"`
	Total     int64  `json:"total"`
	Contained int64  `json:"contained"`
}

// ReportBreakdownRow 报表分类行
type ReportBreakdownRow struct {
	Label string  `json:"label"`
	Count int64   `json:"count"`
	Pct   float64 `json:"pct"`
}

// ReportGenerator 报表内容生成器
type ReportGenerator struct {
	history domain.HistorySource
	caps    domain.CapacityRepository
	now     func() time.Time
}

// NewReportGenerator 创建报表内容生成器
func NewReportGenerator(history domain.HistorySource, caps domain.CapacityRepository) *ReportGenerator {
	return &ReportGenerator{
		history: history,
		caps:    caps,
		now:     time.Now,
	}
}

// Build 汇总报表时间范围内的指标与分布
func (g *ReportGenerator) Build(ctx context.Context, report *domain.Report) (*ReportPayload, error) {
	rng := report.Range

	stats, err := g.history.KPIStats(ctx, report.TenantID, rng)
	if err != nil {
		return nil, fmt.Errorf("kpi stats: %w", err)
	}

	profile, err := g.caps.GetProfile(ctx, report.TenantID)
	if err != nil {
		profile = domain.DefaultCapacityProfile(report.TenantID)
	}
	snap := stats.Derive(profile)

	daily, err := g.dailyInRange(ctx, report.TenantID, rng)
	if err != nil {
		return nil, fmt.Errorf("daily volume: %w", err)
	}

	payload := &ReportPayload{
		TenantID:   report.TenantID,
		ReportType: string(report.Type),
		RangeStart: rng.Start.Format("2006-01-02"),
		RangeEnd:   rng.End.Format("2006-01-02"),
		KPIs: ReportKPISection{
			TotalCalls:     snap.CallsToday,
			ContainmentPct: snap.ContainmentPct,
			FCRPct:         snap.FCRPct,
			AHTMinutes:     snap.AHTMinutes,
			AIResolved:     snap.AIResolved,
			Escalated:      snap.Escalated,
			CostSavings:    snap.CostSavings,
			Currency:       snap.Currency,
		},
		Daily:       daily,
		GeneratedAt: g.now(),
	}

	for _, kind := range []domain.BreakdownKind{domain.BreakdownLanguage, domain.BreakdownIntent, domain.BreakdownResolution} {
		b, err := g.history.Breakdown(ctx, report.TenantID, kind, rng)
		if err != nil {
			return nil, fmt.Errorf("breakdown %s: %w", kind, err)
		}
		rows := breakdownRows(b)
		switch kind {
		case domain.BreakdownLanguage:
			payload.Languages = rows
		case domain.BreakdownIntent:
			payload.Intents = rows
		case domain.BreakdownResolution:
			payload.Resolutions = rows
		}
	}

	return payload, nil
}

// Encode 将报表内容编码为目标格式，返回数据与 Content-Type
func (g *ReportGenerator) Encode(payload *ReportPayload, format domain.ReportFormat) ([]byte, string, error) {
	switch format {
	case domain.ReportFormatCSV:
		data, err := payload.encodeCSV()
		return data, "text/csv", err
	case "", domain.ReportFormatJSON:
		data, err := json.MarshalIndent(payload, "", "  ")
		return data, "application/json", err
	default:
		return nil, "", domain.ErrInvalidReportFormat
	}
}

// dailyInRange 取按日趋势并裁剪到报表范围
// 历史来源按“距今 N 天”取数，这里换算天数后再按范围过滤。
func (g *ReportGenerator) dailyInRange(ctx context.Context, tenantID string, rng domain.TimeRange) ([]ReportDailyRow, error) {
	days := int(g.now().Sub(rng.Start).Hours()/24) + 1
	if days < 1 {
		days = 1
	}
	if days > 90 {
		days = 90
	}

	volumes, err := g.history.DailyVolume(ctx, tenantID, days)
	if err != nil {
		return nil, err
	}

	rows := make([]ReportDailyRow, 0, len(volumes))
	for _, v := range volumes {
		if v.Date.Before(rng.Start) || v.Date.After(rng.End) {
			continue
		}
		rows = append(rows, ReportDailyRow{
			Date:      v.Date.Format("2006-01-02"),
			Total:     v.Total,
			Contained: v.Contained,
		})
	}
	return rows, nil
}

func breakdownRows(b *domain.Breakdown) []ReportBreakdownRow {
	rows := make([]ReportBreakdownRow, 0, len(b.Items))
	for _, item := range b.Items {
		rows = append(rows, ReportBreakdownRow{Label: item.Label, Count: item.Count, Pct: item.Pct})
	}
	return rows
}

// encodeCSV 分区段输出 CSV，每段前有标题行
func (p *ReportPayload) encodeCSV() ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	records := [][]string{
		{"tenant_id", "report_type", "range_start", "range_end", "generated_at"},
		{p.TenantID, p.ReportType, p.RangeStart, p.RangeEnd, p.GeneratedAt.Format(time.RFC3339)},
		{},
		{"metric", "value"},
		{"total_calls", strconv.FormatInt(p.KPIs.TotalCalls, 10)},
		{"containment_pct", formatFloat(p.KPIs.ContainmentPct)},
		{"fcr_pct", formatFloat(p.KPIs.FCRPct)},
		{"aht_minutes", formatFloat(p.KPIs.AHTMinutes)},
		{"ai_resolved", strconv.FormatInt(p.KPIs.AIResolved, 10)},
		{"escalated", strconv.FormatInt(p.KPIs.Escalated, 10)},
		{"cost_savings", formatFloat(p.KPIs.CostSavings)},
		{"currency", p.KPIs.Currency},
		{},
		{"date", "total_calls", "ai_contained"},
	}
	for _, d := range p.Daily {
		records = append(records, []string{d.Date, strconv.FormatInt(d.Total, 10), strconv.FormatInt(d.Contained, 10)})
	}

	sections := []struct {
		title string
		rows  []ReportBreakdownRow
	}{
		{"language", p.Languages},
		{"intent", p.Intents},
		{"resolution", p.Resolutions},
	}
	for _, sec := range sections {
		records = append(records, []string{}, []string{sec.title, "count", "pct"})
		for _, row := range sec.rows {
			records = append(records, []string{row.Label, strconv.FormatInt(row.Count, 10), formatFloat(row.Pct)})
		}
	}

	if err := w.WriteAll(records); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
