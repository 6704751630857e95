package data

import (
	"context"
	"sort"
	"sync"
	"time"

	"voicedash/cmd/dashboard-service/internal/domain"
)

// MemoryCapacityRepository 内存容量档案仓储
// mock 模式下未配置 PostgreSQL 时使用，进程重启后配置丢失。
type MemoryCapacityRepository struct {
	mu       sync.RWMutex
	profiles map[string]*domain.CapacityProfile
}

// NewMemoryCapacityRepository 创建内存容量档案仓储
func NewMemoryCapacityRepository() *MemoryCapacityRepository {
	return &MemoryCapacityRepository{
		profiles: make(map[string]*domain.CapacityProfile),
	}
}

// GetProfile 获取租户容量档案
func (r *MemoryCapacityRepository) GetProfile(ctx context.Context, tenantID string) (*domain.CapacityProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	profile, ok := r.profiles[tenantID]
	if !ok {
		return nil, domain.ErrCapacityProfileNotFound
	}

	cp := *profile
	return &cp, nil
}

// UpsertProfile 写入或更新容量档案
func (r *MemoryCapacityRepository) UpsertProfile(ctx context.Context, profile *domain.CapacityProfile) error {
	if err := profile.Validate(); err != nil {
		return err
	}

	cp := *profile
	cp.UpdatedAt = time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[cp.TenantID] = &cp
	return nil
}

// MemoryReportRepository 内存报表仓储
// 与 gorm 实现同语义：列表按创建时间倒序，未找到返回领域错误。
type MemoryReportRepository struct {
	mu      sync.RWMutex
	reports map[string]*domain.Report
}

// NewMemoryReportRepository 创建内存报表仓储
func NewMemoryReportRepository() *MemoryReportRepository {
	return &MemoryReportRepository{
		reports: make(map[string]*domain.Report),
	}
}

// CreateReport 创建报表
func (r *MemoryReportRepository) CreateReport(ctx context.Context, report *domain.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports[report.ID] = cloneReport(report)
	return nil
}

// GetReport 获取报表
func (r *MemoryReportRepository) GetReport(ctx context.Context, id string) (*domain.Report, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	report, ok := r.reports[id]
	if !ok {
		return nil, domain.ErrReportNotFound
	}
	return cloneReport(report), nil
}

// UpdateReport 更新报表
func (r *MemoryReportRepository) UpdateReport(ctx context.Context, report *domain.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports[report.ID] = cloneReport(report)
	return nil
}

// ListReports 列出报表
func (r *MemoryReportRepository) ListReports(ctx context.Context, tenantID string, limit, offset int) ([]*domain.Report, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*domain.Report, 0, len(r.reports))
	for _, report := range r.reports {
		if report.TenantID == tenantID {
			all = append(all, report)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	total := len(all)
	if offset >= total {
		return []*domain.Report{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}

	page := make([]*domain.Report, 0, end-offset)
	for _, report := range all[offset:end] {
		page = append(page, cloneReport(report))
	}
	return page, total, nil
}

// DeleteReport 删除报表
func (r *MemoryReportRepository) DeleteReport(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.reports, id)
	return nil
}

// cloneReport 深拷贝报表，避免调用方修改仓储内部状态
func cloneReport(report *domain.Report) *domain.Report {
	cp := *report
	if report.Data != nil {
		cp.Data = make(map[string]interface{}, len(report.Data))
		for k, v := range report.Data {
			cp.Data[k] = v
		}
	}
	if report.CompletedAt != nil {
		at := *report.CompletedAt
		cp.CompletedAt = &at
	}
	return &cp
}
