package domain

import "time"

// Resolution 呼叫处理结果
type Resolution string

const (
	ResolutionAIResolved      Resolution = "ai_resolved"      // AI 闭环
	ResolutionHumanEscalation Resolution = "human_escalation" // 转人工
	ResolutionAbandoned       Resolution = "abandoned"        // 放弃
	ResolutionTransferred     Resolution = "transferred"      // 转接
)

// Display 处理结果的展示名
func (r Resolution) Display() string {
	switch r {
	case ResolutionAIResolved:
		return "AI Resolved"
	case ResolutionHumanEscalation:
		return "Human Escalation"
	case ResolutionAbandoned:
		return "Abandoned"
	case ResolutionTransferred:
		return "Transferred"
	default:
		return string(r)
	}
}

// CallRecord 一通已结束呼叫的完整记录
type CallRecord struct {
	TenantID          string
	CallID            string
	StartedAt         time.Time
	EndedAt           time.Time
	Language          string
	Intent            string
	Resolution        Resolution
	FirstCallResolved bool
	HandleSeconds     float64
	WaitSeconds       float64
}
