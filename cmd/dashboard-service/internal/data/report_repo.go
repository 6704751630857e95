package data

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"

	"voicedash/cmd/dashboard-service/internal/domain"
)

// ReportDO 报表数据对象
type ReportDO struct {
	ID          string `gorm:"primaryKey"`
	TenantID    string `gorm:"index"`
	Type        string
	Name        string
	Description string
	Status      string
	Format      string
	RangePreset string
	RangeStart  time.Time
	RangeEnd    time.Time
	Data        string // JSON string
	FileURL     string
	CreatedBy   string
	FailReason  string
	CreatedAt   time.Time
	CompletedAt *time.Time
}

// TableName 指定表名
func (ReportDO) TableName() string {
	return "dashboard_reports"
}

// ReportRepository 报表仓储实现
type ReportRepository struct {
	db *gorm.DB
}

// NewReportRepository 创建报表仓储
func NewReportRepository(db *gorm.DB) domain.ReportRepository {
	return &ReportRepository{
		db: db,
	}
}

// CreateReport 创建报表
func (r *ReportRepository) CreateReport(ctx context.Context, report *domain.Report) error {
	do := toReportDO(report)
	return r.db.WithContext(ctx).Create(do).Error
}

// GetReport 获取报表
func (r *ReportRepository) GetReport(ctx context.Context, id string) (*domain.Report, error) {
	var do ReportDO
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&do).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrReportNotFound
		}
		return nil, err
	}

	return toReportDomain(&do), nil
}

// UpdateReport 更新报表
func (r *ReportRepository) UpdateReport(ctx context.Context, report *domain.Report) error {
	do := toReportDO(report)
	return r.db.WithContext(ctx).Save(do).Error
}

// ListReports 列出报表
func (r *ReportRepository) ListReports(ctx context.Context, tenantID string, limit, offset int) ([]*domain.Report, int, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&ReportDO{}).
		Where("tenant_id = ?", tenantID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var dos []ReportDO
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&dos).Error; err != nil {
		return nil, 0, err
	}

	reports := make([]*domain.Report, len(dos))
	for i := range dos {
		reports[i] = toReportDomain(&dos[i])
	}

	return reports, int(total), nil
}

// DeleteReport 删除报表
func (r *ReportRepository) DeleteReport(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&ReportDO{}).Error
}

// toReportDO 转换为数据对象
func toReportDO(report *domain.Report) *ReportDO {
	dataJSON, _ := json.Marshal(report.Data)

	return &ReportDO{
		ID:          report.ID,
		TenantID:    report.TenantID,
		Type:        string(report.Type),
		Name:        report.Name,
		Description: report.Description,
		Status:      string(report.Status),
		Format:      string(report.Format),
		RangePreset: string(report.Range.Preset),
		RangeStart:  report.Range.Start,
		RangeEnd:    report.Range.End,
		Data:        string(dataJSON),
		FileURL:     report.FileURL,
		CreatedBy:   report.CreatedBy,
		FailReason:  report.FailReason,
		CreatedAt:   report.CreatedAt,
		CompletedAt: report.CompletedAt,
	}
}

// toReportDomain 转换为领域对象
func toReportDomain(do *ReportDO) *domain.Report {
	var data map[string]interface{}
	_ = json.Unmarshal([]byte(do.Data), &data)

	return &domain.Report{
		ID:          do.ID,
		TenantID:    do.TenantID,
		Type:        domain.ReportType(do.Type),
		Name:        do.Name,
		Description: do.Description,
		Status:      domain.ReportStatus(do.Status),
		Format:      domain.ReportFormat(do.Format),
		Range: domain.TimeRange{
			Preset: domain.RangePreset(do.RangePreset),
			Start:  do.RangeStart,
			End:    do.RangeEnd,
		},
		Data:        data,
		FileURL:     do.FileURL,
		CreatedBy:   do.CreatedBy,
		FailReason:  do.FailReason,
		CreatedAt:   do.CreatedAt,
		CompletedAt: do.CompletedAt,
	}
}
