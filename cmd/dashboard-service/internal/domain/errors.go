package domain

import "errors"

var (
	// ErrTenantRequired 缺少租户标识
	ErrTenantRequired = errors.New("tenant id required")

	// ErrInvalidTimeRange 无效的时间范围
	ErrInvalidTimeRange = errors.New("invalid time range")

	// ErrUnknownViewMode 未知的视图模式
	ErrUnknownViewMode = errors.New("unknown view mode")

	// ErrSnapshotUnavailable 指标来源不可用
	ErrSnapshotUnavailable = errors.New("snapshot source unavailable")

	// ErrInvalidCapacityProfile 无效的容量档案
	ErrInvalidCapacityProfile = errors.New("invalid capacity profile")

	// ErrCapacityProfileNotFound 容量档案未找到
	ErrCapacityProfileNotFound = errors.New("capacity profile not found")

	// ErrReportNotFound 报表未找到
	ErrReportNotFound = errors.New("report not found")

	// ErrInvalidReportType 无效的报表类型
	ErrInvalidReportType = errors.New("invalid report type")

	// ErrInvalidReportFormat 无效的报表格式
	ErrInvalidReportFormat = errors.New("invalid report format")

	// ErrReportGenerationFailed 报表生成失败
	ErrReportGenerationFailed = errors.New("report generation failed")
)
