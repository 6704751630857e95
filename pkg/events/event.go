package events

import "time"

// 呼叫生命周期事件类型
const (
	EventCallStarted = "call.started" // 呼叫接入
	EventCallEnded   = "call.ended"   // 呼叫结束
)

// CallEvent 呼叫生命周期事件
// started 事件携带排队深度，ended 事件携带完整的通话结果字段。
type CallEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	TenantID  string    `json:"tenant_id"`
	CallID    string    `json:"call_id"`
	Timestamp time.Time `json:"timestamp"`

	// started 事件字段
	QueueDepth int `json:"queue_depth,omitempty"`

	// ended 事件字段
	StartedAt         time.Time `json:"started_at,omitempty"`
	Language          string    `json:"language,omitempty"`
	Intent            string    `json:"intent,omitempty"`
	Resolution        string    `json:"resolution,omitempty"`
	FirstCallResolved bool      `json:"first_call_resolved,omitempty"`
	HandleSeconds     float64   `json:"handle_seconds,omitempty"`
	WaitSeconds       float64   `json:"wait_seconds,omitempty"`
}
