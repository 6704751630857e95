package domain

import "math"

// 仪表盘口径常量
const (
	// ahtGaugeCeilingMinutes AHT 仪表格换算上限，12 分钟记 0 分
	ahtGaugeCeilingMinutes = 12.0

	// DefaultContainmentTarget AI 闭环率目标
	DefaultContainmentTarget = 70.0
	// DefaultFCRTarget 首次解决率目标
	DefaultFCRTarget = 70.0
	// DefaultAHTTargetMinutes 平均处理时长目标
	DefaultAHTTargetMinutes = 8.0
	// DefaultQueueAlertThreshold 排队告警阈值
	DefaultQueueAlertThreshold = 20
)

// ContainmentRate AI 闭环率：无人工介入即解决的呼叫占比
func ContainmentRate(contained, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(contained) / float64(total) * 100
}

// FirstCallResolution 首次解决率：单次交互内解决的问题占比
// 与闭环率口径不同：转人工后一次解决的呼叫计入 FCR 但不计入闭环。
func FirstCallResolution(resolvedFirst, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(resolvedFirst) / float64(total) * 100
}

// AverageHandleTime 平均处理时长（分钟），含通话、保持与话后处理
func AverageHandleTime(totalMinutes float64, calls int64) float64 {
	if calls <= 0 {
		return 0
	}
	return totalMinutes / float64(calls)
}

// CapacityUtilization 并发容量利用率：当前活跃呼叫 / 最大并发容量
func CapacityUtilization(active, capacity int) float64 {
	if capacity <= 0 {
		return 0
	}
	return float64(active) / float64(capacity) * 100
}

// AIResolvedCount 按闭环率折算的 AI 闭环呼叫数
func AIResolvedCount(calls int64, containmentPct float64) int64 {
	if calls <= 0 {
		return 0
	}
	return int64(math.Round(float64(calls) * containmentPct / 100))
}

// CostSavings AI 闭环节省成本：闭环呼叫数 × 单呼人工成本
func CostSavings(aiResolved int64, costPerCall float64) float64 {
	if aiResolved <= 0 {
		return 0
	}
	return float64(aiResolved) * costPerCall
}

// DeltaPct 环比变化百分比，基期为零时记 0
func DeltaPct(current, previous float64) float64 {
	if previous == 0 {
		return 0
	}
	return (current - previous) / previous * 100
}

// AHTGaugeScore AHT 仪表分：时长越短分越高，超过上限记 0
func AHTGaugeScore(ahtMinutes float64) float64 {
	score := 100 - ahtMinutes/ahtGaugeCeilingMinutes*100
	return math.Max(0, score)
}

// Derive 由原始测量值计算完整 KPI 快照
func (s *KPIStats) Derive(profile *CapacityProfile) *KPISnapshot {
	snap := &KPISnapshot{
		KPIStats:          *s,
		ContainmentTarget: DefaultContainmentTarget,
		FCRTarget:         DefaultFCRTarget,
		AHTTargetMinutes:  DefaultAHTTargetMinutes,
		Currency:          profile.Currency,
	}
	snap.AIResolved = AIResolvedCount(s.CallsToday, s.ContainmentPct)
	snap.Escalated = s.CallsToday - snap.AIResolved
	snap.CostSavings = CostSavings(snap.AIResolved, profile.CostPerContainedCall)
	snap.CallsDeltaPct = DeltaPct(float64(s.CallsToday), float64(s.CallsYesterday))
	snap.AHTGaugeScore = AHTGaugeScore(s.AHTMinutes)
	snap.AHTGaugeTarget = AHTGaugeScore(DefaultAHTTargetMinutes)
	return snap
}
