package domain

import "time"

// CapacityProfile 租户容量档案（坐席并发上限与成本口径）
type CapacityProfile struct {
	TenantID             string
	MaxConcurrentCalls   int
	CostPerContainedCall float64
	Currency             string
	QueueAlertThreshold  int
	UpdatedAt            time.Time
}

// DefaultCapacityProfile 未配置租户的缺省档案
func DefaultCapacityProfile(tenantID string) *CapacityProfile {
	return &CapacityProfile{
		TenantID:             tenantID,
		MaxConcurrentCalls:   300,
		CostPerContainedCall: 50,
		Currency:             "INR",
		QueueAlertThreshold:  DefaultQueueAlertThreshold,
		UpdatedAt:            time.Now(),
	}
}

// Validate 校验档案字段
func (p *CapacityProfile) Validate() error {
	if p.TenantID == "" {
		return ErrTenantRequired
	}
	if p.MaxConcurrentCalls <= 0 || p.CostPerContainedCall < 0 {
		return ErrInvalidCapacityProfile
	}
	if p.QueueAlertThreshold <= 0 {
		p.QueueAlertThreshold = DefaultQueueAlertThreshold
	}
	return nil
}
