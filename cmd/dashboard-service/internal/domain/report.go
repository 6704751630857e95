package domain

import (
	"time"

	"github.com/google/uuid"
)

// Report 报表聚合根
type Report struct {
	ID          string
	TenantID    string
	Type        ReportType
	Name        string
	Description string
	Status      ReportStatus
	Format      ReportFormat
	Range       TimeRange
	Data        map[string]interface{}
	FileURL     string
	CreatedBy   string
	CreatedAt   time.Time
	CompletedAt *time.Time
	FailReason  string
}

// ReportType 报表类型
type ReportType string

const (
	ReportTypeDaily  ReportType = "daily"  // 日报
	ReportTypeWeekly ReportType = "weekly" // 周报
	ReportTypeCustom ReportType = "custom" // 自定义区间
)

// ReportStatus 报表状态
type ReportStatus string

const (
	ReportStatusPending    ReportStatus = "pending"    // 待处理
	ReportStatusProcessing ReportStatus = "processing" // 处理中
	ReportStatusCompleted  ReportStatus = "completed"  // 已完成
	ReportStatusFailed     ReportStatus = "failed"     // 失败
)

// ReportFormat 报表格式
type ReportFormat string

const (
	ReportFormatJSON ReportFormat = "json" // JSON
	ReportFormatCSV  ReportFormat = "csv"  // CSV
)

// ParseReportFormat 解析报表格式，空值回退到 JSON
func ParseReportFormat(s string) (ReportFormat, error) {
	switch s {
	case "", string(ReportFormatJSON):
		return ReportFormatJSON, nil
	case string(ReportFormatCSV):
		return ReportFormatCSV, nil
	default:
		return "", ErrInvalidReportFormat
	}
}

// NewReport 创建待处理报表
func NewReport(tenantID string, reportType ReportType, name, createdBy string, rng TimeRange) (*Report, error) {
	switch reportType {
	case ReportTypeDaily, ReportTypeWeekly, ReportTypeCustom:
	default:
		return nil, ErrInvalidReportType
	}
	if tenantID == "" {
		return nil, ErrTenantRequired
	}
	return &Report{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		Type:      reportType,
		Name:      name,
		Status:    ReportStatusPending,
		Format:    ReportFormatJSON,
		Range:     rng,
		Data:      make(map[string]interface{}),
		CreatedBy: createdBy,
		CreatedAt: time.Now(),
	}, nil
}

// Start 进入处理中
func (r *Report) Start() {
	r.Status = ReportStatusProcessing
}

// Complete 完成报表并记录产物地址
func (r *Report) Complete(fileURL string) {
	r.Status = ReportStatusCompleted
	r.FileURL = fileURL
	now := time.Now()
	r.CompletedAt = &now
}

// Fail 标记失败
func (r *Report) Fail(reason string) {
	r.Status = ReportStatusFailed
	r.FailReason = reason
	now := time.Now()
	r.CompletedAt = &now
}
