package biz

import (
	"context"
	"fmt"
	"time"

	"github.com/go-kratos/kratos/v2/log"

	"voicedash/cmd/dashboard-service/internal/conf"
	"voicedash/cmd/dashboard-service/internal/domain"
	"voicedash/pkg/resilience"
)

// ReportUsecase 报表用例：创建后异步生成并上传产物
type ReportUsecase struct {
	repo     domain.ReportRepository
	gen      *ReportGenerator
	uploader ReportUploader
	cfg      *conf.Config
	log      *log.Helper
	now      func() time.Time
}

// NewReportUsecase 创建报表用例
func NewReportUsecase(
	repo domain.ReportRepository,
	gen *ReportGenerator,
	uploader ReportUploader,
	cfg *conf.Config,
	logger log.Logger,
) *ReportUsecase {
	return &ReportUsecase{
		repo:     repo,
		gen:      gen,
		uploader: uploader,
		cfg:      cfg,
		log:      log.NewHelper(logger),
		now:      time.Now,
	}
}

// CreateReport 创建报表并触发异步生成
// daily 覆盖今日，weekly 覆盖最近 7 天，custom 使用给定区间。
func (uc *ReportUsecase) CreateReport(
	ctx context.Context,
	tenantID string,
	reportType domain.ReportType,
	format domain.ReportFormat,
	name, createdBy string,
	start, end time.Time,
) (*domain.Report, error) {
	rng, err := uc.rangeForType(reportType, start, end)
	if err != nil {
		return nil, err
	}

	report, err := domain.NewReport(tenantID, reportType, name, createdBy, rng)
	if err != nil {
		return nil, err
	}
	if format != "" {
		if _, err := domain.ParseReportFormat(string(format)); err != nil {
			return nil, err
		}
		report.Format = format
	}

	if err := uc.repo.CreateReport(ctx, report); err != nil {
		return nil, fmt.Errorf("create report: %w", err)
	}

	// 异步生成，不阻塞创建请求；拷贝一份避免与返回值竞争
	cp := *report
	go uc.generateAsync(&cp)

	return report, nil
}

// GetReport 获取报表
func (uc *ReportUsecase) GetReport(ctx context.Context, id string) (*domain.Report, error) {
	return uc.repo.GetReport(ctx, id)
}

// ListReports 分页列出租户报表
func (uc *ReportUsecase) ListReports(ctx context.Context, tenantID string, limit, offset int) ([]*domain.Report, int, error) {
	if tenantID == "" {
		return nil, 0, domain.ErrTenantRequired
	}
	if limit <= 0 {
		limit = uc.cfg.Tenant.DefaultLimit
	}
	if limit > uc.cfg.Tenant.MaxLimit {
		limit = uc.cfg.Tenant.MaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return uc.repo.ListReports(ctx, tenantID, limit, offset)
}

// DeleteReport 删除报表记录及其产物文件
func (uc *ReportUsecase) DeleteReport(ctx context.Context, id string) error {
	report, err := uc.repo.GetReport(ctx, id)
	if err != nil {
		return err
	}

	if report.FileURL != "" {
		if err := uc.uploader.Delete(ctx, reportObjectName(report)); err != nil {
			// 产物清理失败不阻塞记录删除
			uc.log.WithContext(ctx).Warnf("delete report file %s failed: %v", report.ID, err)
		}
	}

	return uc.repo.DeleteReport(ctx, id)
}

// generateAsync 异步生成报表内容并上传
func (uc *ReportUsecase) generateAsync(report *domain.Report) {
	ctx, cancel := context.WithTimeout(context.Background(), uc.cfg.Resilience.Timeout.ReportGeneration)
	defer cancel()

	// 1. 标记处理中
	report.Start()
	if err := uc.repo.UpdateReport(ctx, report); err != nil {
		uc.log.Errorf("mark report %s processing failed: %v", report.ID, err)
	}

	// 2. 汇总数据
	payload, err := uc.gen.Build(ctx, report)
	if err != nil {
		uc.fail(ctx, report, err)
		return
	}

	// 3. 编码并上传产物
	data, contentType, err := uc.gen.Encode(payload, report.Format)
	if err != nil {
		uc.fail(ctx, report, err)
		return
	}

	// 上传对象存储偶发抖动，按默认策略重试
	var fileURL string
	err = resilience.Retry(ctx, resilience.DefaultPolicy(), func() error {
		var uploadErr error
		fileURL, uploadErr = uc.uploader.Upload(ctx, reportObjectName(report), data, contentType)
		return uploadErr
	})
	if err != nil {
		uc.fail(ctx, report, fmt.Errorf("upload: %w", err))
		return
	}

	// 4. 回写摘要与产物地址
	report.Data = map[string]interface{}{
		"total_calls":     payload.KPIs.TotalCalls,
		"containment_pct": payload.KPIs.ContainmentPct,
		"fcr_pct":         payload.KPIs.FCRPct,
		"aht_minutes":     payload.KPIs.AHTMinutes,
		"cost_savings":    payload.KPIs.CostSavings,
	}
	report.Complete(fileURL)
	if err := uc.repo.UpdateReport(ctx, report); err != nil {
		uc.log.Errorf("complete report %s failed: %v", report.ID, err)
	}
}

func (uc *ReportUsecase) fail(ctx context.Context, report *domain.Report, cause error) {
	uc.log.Errorf("generate report %s failed: %v", report.ID, cause)
	report.Fail(cause.Error())
	if err := uc.repo.UpdateReport(ctx, report); err != nil {
		uc.log.Errorf("mark report %s failed: %v", report.ID, err)
	}
}

func (uc *ReportUsecase) rangeForType(reportType domain.ReportType, start, end time.Time) (domain.TimeRange, error) {
	now := uc.now()
	switch reportType {
	case domain.ReportTypeDaily:
		return domain.NewTimeRange(domain.RangeToday, time.Time{}, time.Time{}, now)
	case domain.ReportTypeWeekly:
		return domain.NewTimeRange(domain.RangeWeek, time.Time{}, time.Time{}, now)
	case domain.ReportTypeCustom:
		return domain.NewTimeRange(domain.RangeCustom, start, end, now)
	default:
		return domain.TimeRange{}, domain.ErrInvalidReportType
	}
}

// reportObjectName 对象存储中的报表产物路径
func reportObjectName(r *domain.Report) string {
	return fmt.Sprintf("reports/%s/%s.%s", r.TenantID, r.ID, r.Format)
}
