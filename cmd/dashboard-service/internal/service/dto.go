package service

import (
	"time"

	"voicedash/cmd/dashboard-service/internal/conf"
	"voicedash/cmd/dashboard-service/internal/domain"
)

// LiveSnapshotDTO 实时快照响应
type LiveSnapshotDTO struct {
	TenantID       string    `json:"tenant_id"`
	ActiveCalls    int       `json:"active_calls"`
	QueueSize      int       `json:"queue_size"`
	CallsToday     int       `json:"calls_today"`
	CallsPerHour   int       `json:"calls_per_hour"`
	CapacityPct    float64   `json:"capacity_pct"`
	AvgWaitSeconds float64   `json:"avg_wait_seconds"`
	Timestamp      time.Time `json:"timestamp"`
}

// KPIDTO KPI 快照响应
type KPIDTO struct {
	TenantID          string  `json:"tenant_id"`
	Range             string  `json:"range"`
	RangeStart        string  `json:"range_start"`
	RangeEnd          string  `json:"range_end"`
	ContainmentPct    float64 `json:"containment_pct"`
	ContainmentTarget float64 `json:"containment_target"`
	FCRPct            float64 `json:"fcr_pct"`
	FCRTarget         float64 `json:"fcr_target"`
	AHTMinutes        float64 `json:"aht_minutes"`
	AHTTargetMinutes  float64 `json:"aht_target_minutes"`
	AHTGaugeScore     float64 `json:"aht_gauge_score"`
	AHTGaugeTarget    float64 `json:"aht_gauge_target"`
	CallsToday        int64   `json:"calls_today"`
	CallsYesterday    int64   `json:"calls_yesterday"`
	CallsDeltaPct     float64 `json:"calls_delta_pct"`
	AIResolved        int64   `json:"ai_resolved"`
	Escalated         int64   `json:"escalated"`
	CostSavings       float64 `json:"cost_savings"`
	Currency          string  `json:"currency"`
}

// HourlyPointDTO 按小时数据点
type HourlyPointDTO struct {
	Hour      int   `json:"hour"`
	Today     int64 `json:"today"`
	Yesterday int64 `json:"yesterday"`
}

// HourlyChartDTO 按小时图表响应
type HourlyChartDTO struct {
	TenantID string           `json:"tenant_id"`
	Points   []HourlyPointDTO `json:"points"`
}

// DailyPointDTO 按日数据点
type DailyPointDTO struct {
	Date      string `json:"date"`
	Total     int64  `json:"total"`
	Contained int64  `json:"contained"`
}

// DailyChartDTO 按日趋势响应
type DailyChartDTO struct {
	TenantID string          `json:"tenant_id"`
	Points   []DailyPointDTO `json:"points"`
}

// CategoryDTO 分类计数
type CategoryDTO struct {
	Label string  `json:"label"`
	Count int64   `json:"count"`
	Pct   float64 `json:"pct"`
}

// BreakdownDTO 分类统计响应
type BreakdownDTO struct {
	TenantID string        `json:"tenant_id"`
	Kind     string        `json:"kind"`
	Total    int64         `json:"total"`
	Items    []CategoryDTO `json:"items"`
}

// CardDTO 指标卡布局项
type CardDTO struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	Unit    string  `json:"unit,omitempty"`
	Target  float64 `json:"target,omitempty"`
	Inverse bool    `json:"inverse,omitempty"`
}

// TabDTO 桌面版标签页布局项
type TabDTO struct {
	Name   string   `json:"name"`
	Cards  []string `json:"cards"`
	Charts []string `json:"charts"`
}

// LayoutDTO 布局响应；桌面版带标签页，大屏版带 TV 段
type LayoutDTO struct {
	Cards []CardDTO `json:"cards"`
	Tabs  []TabDTO  `json:"tabs,omitempty"`
	TV    *TVDTO    `json:"tv,omitempty"`
}

// TVDTO 大屏版布局段
type TVDTO struct {
	Title        string   `json:"title"`
	Charts       []string `json:"charts"`
	ShowQueueBar bool     `json:"show_queue_bar"`
}

// SummaryDTO 看板完整载荷响应
type SummaryDTO struct {
	TenantID       string           `json:"tenant_id"`
	Mode           string           `json:"mode"`
	Live           *LiveSnapshotDTO `json:"live,omitempty"`
	KPIs           *KPIDTO          `json:"kpis,omitempty"`
	Hourly         []HourlyPointDTO `json:"hourly,omitempty"`
	Daily          []DailyPointDTO  `json:"daily,omitempty"`
	Languages      *BreakdownDTO    `json:"languages,omitempty"`
	Intents        *BreakdownDTO    `json:"intents,omitempty"`
	Resolutions    *BreakdownDTO    `json:"resolutions,omitempty"`
	QueueAlert     bool             `json:"queue_alert"`
	Layout         *LayoutDTO       `json:"layout,omitempty"`
	RefreshSeconds int              `json:"refresh_seconds"`
	GeneratedAt    time.Time        `json:"generated_at"`
}

// ReportDTO 报表响应
type ReportDTO struct {
	ID          string                 `json:"id"`
	TenantID    string                 `json:"tenant_id"`
	Type        string                 `json:"type"`
	Name        string                 `json:"name"`
	Status      string                 `json:"status"`
	Format      string                 `json:"format"`
	RangeStart  string                 `json:"range_start"`
	RangeEnd    string                 `json:"range_end"`
	Data        map[string]interface{} `json:"data,omitempty"`
	FileURL     string                 `json:"file_url,omitempty"`
	CreatedBy   string                 `json:"created_by,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	FailReason  string                 `json:"fail_reason,omitempty"`
}

// CapacityProfileDTO 容量档案响应
type CapacityProfileDTO struct {
	TenantID             string    `json:"tenant_id"`
	MaxConcurrentCalls   int       `json:"max_concurrent_calls"`
	CostPerContainedCall float64   `json:"cost_per_contained_call"`
	Currency             string    `json:"currency"`
	QueueAlertThreshold  int       `json:"queue_alert_threshold"`
	UpdatedAt            time.Time `json:"updated_at"`
}

func toLiveDTO(s *domain.LiveSnapshot) *LiveSnapshotDTO {
	if s == nil {
		return nil
	}
	return &LiveSnapshotDTO{
		TenantID:       s.TenantID,
		ActiveCalls:    s.ActiveCalls,
		QueueSize:      s.QueueSize,
		CallsToday:     s.CallsToday,
		CallsPerHour:   s.CallsPerHour,
		CapacityPct:    s.CapacityPct,
		AvgWaitSeconds: s.AvgWaitSeconds,
		Timestamp:      s.Timestamp,
	}
}

func toKPIDTO(s *domain.KPISnapshot) *KPIDTO {
	if s == nil {
		return nil
	}
	return &KPIDTO{
		TenantID:          s.TenantID,
		Range:             string(s.Range.Preset),
		RangeStart:        s.Range.Start.Format("2006-01-02"),
		RangeEnd:          s.Range.End.Format("2006-01-02"),
		ContainmentPct:    s.ContainmentPct,
		ContainmentTarget: s.ContainmentTarget,
		FCRPct:            s.FCRPct,
		FCRTarget:         s.FCRTarget,
		AHTMinutes:        s.AHTMinutes,
		AHTTargetMinutes:  s.AHTTargetMinutes,
		AHTGaugeScore:     s.AHTGaugeScore,
		AHTGaugeTarget:    s.AHTGaugeTarget,
		CallsToday:        s.CallsToday,
		CallsYesterday:    s.CallsYesterday,
		CallsDeltaPct:     s.CallsDeltaPct,
		AIResolved:        s.AIResolved,
		Escalated:         s.Escalated,
		CostSavings:       s.CostSavings,
		Currency:          s.Currency,
	}
}

func toHourlyPoints(rows []domain.HourlyVolume) []HourlyPointDTO {
	points := make([]HourlyPointDTO, 0, len(rows))
	for _, r := range rows {
		points = append(points, HourlyPointDTO{Hour: r.Hour, Today: r.Today, Yesterday: r.Yesterday})
	}
	return points
}

func toDailyPoints(rows []domain.DailyVolume) []DailyPointDTO {
	points := make([]DailyPointDTO, 0, len(rows))
	for _, r := range rows {
		points = append(points, DailyPointDTO{
			Date:      r.Date.Format("2006-01-02"),
			Total:     r.Total,
			Contained: r.Contained,
		})
	}
	return points
}

func toBreakdownDTO(b *domain.Breakdown) *BreakdownDTO {
	if b == nil {
		return nil
	}
	items := make([]CategoryDTO, 0, len(b.Items))
	for _, it := range b.Items {
		items = append(items, CategoryDTO{Label: it.Label, Count: it.Count, Pct: it.Pct})
	}
	return &BreakdownDTO{TenantID: b.TenantID, Kind: string(b.Kind), Total: b.Total, Items: items}
}

func toCardDTOs(cards []conf.CardSpec) []CardDTO {
	out := make([]CardDTO, 0, len(cards))
	for _, c := range cards {
		out = append(out, CardDTO{ID: c.ID, Title: c.Title, Unit: c.Unit, Target: c.Target, Inverse: c.Inverse})
	}
	return out
}

// toLayoutDTO 桌面版返回全部卡片与标签页，大屏版只保留上屏子集
func toLayoutDTO(layout *conf.Layout, mode domain.ViewMode) *LayoutDTO {
	if layout == nil {
		return nil
	}
	if mode == domain.ViewTV {
		return &LayoutDTO{
			Cards: toCardDTOs(layout.TVCards()),
			TV: &TVDTO{
				Title:        layout.TV.Title,
				Charts:       layout.TV.Charts,
				ShowQueueBar: layout.TV.ShowQueueBar,
			},
		}
	}

	tabs := make([]TabDTO, 0, len(layout.Tabs))
	for _, tab := range layout.Tabs {
		tabs = append(tabs, TabDTO{Name: tab.Name, Cards: tab.Cards, Charts: tab.Charts})
	}
	return &LayoutDTO{Cards: toCardDTOs(layout.Cards), Tabs: tabs}
}

func toReportDTO(r *domain.Report) *ReportDTO {
	if r == nil {
		return nil
	}
	return &ReportDTO{
		ID:          r.ID,
		TenantID:    r.TenantID,
		Type:        string(r.Type),
		Name:        r.Name,
		Status:      string(r.Status),
		Format:      string(r.Format),
		RangeStart:  r.Range.Start.Format("2006-01-02"),
		RangeEnd:    r.Range.End.Format("2006-01-02"),
		Data:        r.Data,
		FileURL:     r.FileURL,
		CreatedBy:   r.CreatedBy,
		CreatedAt:   r.CreatedAt,
		CompletedAt: r.CompletedAt,
		FailReason:  r.FailReason,
	}
}

func toCapacityDTO(p *domain.CapacityProfile) *CapacityProfileDTO {
	if p == nil {
		return nil
	}
	return &CapacityProfileDTO{
		TenantID:             p.TenantID,
		MaxConcurrentCalls:   p.MaxConcurrentCalls,
		CostPerContainedCall: p.CostPerContainedCall,
		Currency:             p.Currency,
		QueueAlertThreshold:  p.QueueAlertThreshold,
		UpdatedAt:            p.UpdatedAt,
	}
}
