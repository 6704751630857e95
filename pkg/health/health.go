package health

import (
	"context"
	"sync"
	"time"
)

// Status 健康状态
type Status string

const (
	// StatusHealthy 健康
	StatusHealthy Status = "healthy"
	// StatusDegraded 降级
	StatusDegraded Status = "degraded"
	// StatusUnhealthy 不健康
	StatusUnhealthy Status = "unhealthy"
)

// CheckResult 检查结果
type CheckResult struct {
	Status    Status        `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
	Duration  time.Duration `json:"duration"`
	Error     string        `json:"error,omitempty"`
}

// Checker 健康检查器接口
type Checker interface {
	// Check 执行健康检查
	Check(ctx context.Context) CheckResult
	// Name 检查器名称
	Name() string
}

// Registry 健康检查注册表，并发执行所有已注册的检查
type Registry struct {
	mu       sync.RWMutex
	checkers map[string]Checker
}

// NewRegistry 创建健康检查注册表
func NewRegistry() *Registry {
	return &Registry{
		checkers: make(map[string]Checker),
	}
}

// Register 注册检查器
func (r *Registry) Register(checker Checker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkers[checker.Name()] = checker
}

// Check 执行所有检查
func (r *Registry) Check(ctx context.Context) map[string]CheckResult {
	r.mu.RLock()
	checkers := make([]Checker, 0, len(r.checkers))
	for _, checker := range r.checkers {
		checkers = append(checkers, checker)
	}
	r.mu.RUnlock()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]CheckResult, len(checkers))
	)

	for _, checker := range checkers {
		wg.Add(1)
		go func(c Checker) {
			defer wg.Done()
			result := c.Check(ctx)
			mu.Lock()
			results[c.Name()] = result
			mu.Unlock()
		}(checker)
	}

	wg.Wait()
	return results
}

// Ready 执行所有检查并汇总就绪状态。
// 降级依赖仍算就绪，只有不健康依赖会让服务不可用。
func (r *Registry) Ready(ctx context.Context) (bool, map[string]bool) {
	results := r.Check(ctx)

	ready := true
	checks := make(map[string]bool, len(results))
	for name, result := range results {
		ok := result.Status != StatusUnhealthy
		checks[name] = ok
		if !ok {
			ready = false
		}
	}
	return ready, checks
}

// OverallStatus 获取整体状态
func (r *Registry) OverallStatus(ctx context.Context) Status {
	results := r.Check(ctx)

	status := StatusHealthy
	for _, result := range results {
		switch result.Status {
		case StatusUnhealthy:
			return StatusUnhealthy
		case StatusDegraded:
			status = StatusDegraded
		}
	}
	return status
}

// PingChecker 基于 ping 函数的检查器，适用于数据库、Redis、ClickHouse 等依赖。
// threshold 大于零时，超过阈值的响应标记为降级。
type PingChecker struct {
	name      string
	threshold time.Duration
	pingFn    func(context.Context) error
}

// NewPingChecker 创建 ping 检查器
func NewPingChecker(name string, threshold time.Duration, pingFn func(context.Context) error) *PingChecker {
	return &PingChecker{
		name:      name,
		threshold: threshold,
		pingFn:    pingFn,
	}
}

// Name 返回检查器名称
func (p *PingChecker) Name() string {
	return p.name
}

// Check 执行检查
func (p *PingChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	err := p.pingFn(ctx)
	duration := time.Since(start)

	result := CheckResult{
		Status:    StatusHealthy,
		Timestamp: time.Now(),
		Duration:  duration,
	}

	if err != nil {
		result.Status = StatusUnhealthy
		result.Error = err.Error()
		return result
	}
	if p.threshold > 0 && duration > p.threshold {
		result.Status = StatusDegraded
	}
	return result
}
