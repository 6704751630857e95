package service

import (
	"context"
	"time"

	"voicedash/cmd/dashboard-service/internal/biz"
	"voicedash/cmd/dashboard-service/internal/conf"
	"voicedash/cmd/dashboard-service/internal/domain"
)

// DashboardService 看板服务实现
type DashboardService struct {
	dashboardUc *biz.DashboardUsecase
	reportUc    *biz.ReportUsecase
	layout      *conf.Layout
	refresh     time.Duration
}

// NewDashboardService 创建看板服务
func NewDashboardService(
	dashboardUc *biz.DashboardUsecase,
	reportUc *biz.ReportUsecase,
	layout *conf.Layout,
	cfg *conf.Config,
) *DashboardService {
	return &DashboardService{
		dashboardUc: dashboardUc,
		reportUc:    reportUc,
		layout:      layout,
		refresh:     cfg.Dashboard.RefreshInterval,
	}
}

// Live 获取实时快照
func (s *DashboardService) Live(ctx context.Context, tenantID string) (*LiveSnapshotDTO, error) {
	snap, err := s.dashboardUc.Live(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return toLiveDTO(snap), nil
}

// KPIs 获取 KPI 快照
func (s *DashboardService) KPIs(ctx context.Context, tenantID, preset string, start, end time.Time) (*KPIDTO, error) {
	rng, err := domain.NewTimeRange(domain.RangePreset(preset), start, end, time.Now())
	if err != nil {
		return nil, err
	}
	snap, err := s.dashboardUc.KPIs(ctx, tenantID, rng)
	if err != nil {
		return nil, err
	}
	return toKPIDTO(snap), nil
}

// Summary 获取看板完整载荷
func (s *DashboardService) Summary(ctx context.Context, tenantID, modeStr string) (*SummaryDTO, error) {
	mode, err := domain.ParseViewMode(modeStr)
	if err != nil {
		return nil, err
	}
	summary, err := s.dashboardUc.Summary(ctx, tenantID, mode)
	if err != nil {
		return nil, err
	}
	return s.toSummaryDTO(summary), nil
}

// HourlyChart 获取按小时图表
func (s *DashboardService) HourlyChart(ctx context.Context, tenantID string) (*HourlyChartDTO, error) {
	rows, err := s.dashboardUc.Hourly(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return &HourlyChartDTO{TenantID: tenantID, Points: toHourlyPoints(rows)}, nil
}

// DailyChart 获取按日趋势图表
func (s *DashboardService) DailyChart(ctx context.Context, tenantID string, days int) (*DailyChartDTO, error) {
	rows, err := s.dashboardUc.Daily(ctx, tenantID, days)
	if err != nil {
		return nil, err
	}
	return &DailyChartDTO{TenantID: tenantID, Points: toDailyPoints(rows)}, nil
}

// Breakdown 获取分类统计图表
func (s *DashboardService) Breakdown(ctx context.Context, tenantID string, kind domain.BreakdownKind, preset string, start, end time.Time) (*BreakdownDTO, error) {
	rng, err := domain.NewTimeRange(domain.RangePreset(preset), start, end, time.Now())
	if err != nil {
		return nil, err
	}
	b, err := s.dashboardUc.Breakdown(ctx, tenantID, kind, rng)
	if err != nil {
		return nil, err
	}
	return toBreakdownDTO(b), nil
}

// Capacity 获取容量档案
func (s *DashboardService) Capacity(ctx context.Context, tenantID string) (*CapacityProfileDTO, error) {
	profile, err := s.dashboardUc.CapacityProfile(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return toCapacityDTO(profile), nil
}

// UpdateCapacity 更新容量档案
func (s *DashboardService) UpdateCapacity(ctx context.Context, dto *CapacityProfileDTO) (*CapacityProfileDTO, error) {
	profile := &domain.CapacityProfile{
		TenantID:             dto.TenantID,
		MaxConcurrentCalls:   dto.MaxConcurrentCalls,
		CostPerContainedCall: dto.CostPerContainedCall,
		Currency:             dto.Currency,
		QueueAlertThreshold:  dto.QueueAlertThreshold,
	}
	if err := s.dashboardUc.UpdateCapacityProfile(ctx, profile); err != nil {
		return nil, err
	}
	return toCapacityDTO(profile), nil
}

// CreateReport 创建报表
func (s *DashboardService) CreateReport(ctx context.Context, tenantID, reportType, format, name, createdBy string, start, end time.Time) (*ReportDTO, error) {
	report, err := s.reportUc.CreateReport(ctx, tenantID, domain.ReportType(reportType), domain.ReportFormat(format), name, createdBy, start, end)
	if err != nil {
		return nil, err
	}
	return toReportDTO(report), nil
}

// GetReport 获取报表
func (s *DashboardService) GetReport(ctx context.Context, id string) (*ReportDTO, error) {
	report, err := s.reportUc.GetReport(ctx, id)
	if err != nil {
		return nil, err
	}
	return toReportDTO(report), nil
}

// ListReports 列出报表
func (s *DashboardService) ListReports(ctx context.Context, tenantID string, limit, offset int) ([]*ReportDTO, int, error) {
	reports, total, err := s.reportUc.ListReports(ctx, tenantID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	out := make([]*ReportDTO, 0, len(reports))
	for _, r := range reports {
		out = append(out, toReportDTO(r))
	}
	return out, total, nil
}

// DeleteReport 删除报表
func (s *DashboardService) DeleteReport(ctx context.Context, id string) error {
	return s.reportUc.DeleteReport(ctx, id)
}

// RefreshInterval 看板刷新周期
func (s *DashboardService) RefreshInterval() time.Duration {
	return s.refresh
}

func (s *DashboardService) toSummaryDTO(summary *domain.Summary) *SummaryDTO {
	dto := &SummaryDTO{
		TenantID:       summary.TenantID,
		Mode:           string(summary.Mode),
		Live:           toLiveDTO(summary.Live),
		KPIs:           toKPIDTO(summary.KPIs),
		Hourly:         toHourlyPoints(summary.Hourly),
		Daily:          toDailyPoints(summary.Daily),
		Languages:      toBreakdownDTO(summary.Languages),
		Intents:        toBreakdownDTO(summary.Intents),
		Resolutions:    toBreakdownDTO(summary.Resolutions),
		QueueAlert:     summary.QueueAlert,
		Layout:         toLayoutDTO(s.layout, summary.Mode),
		RefreshSeconds: int(s.refresh.Seconds()),
		GeneratedAt:    summary.GeneratedAt,
	}
	return dto
}
