package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventsConsumedTotal 摄入的呼叫事件计数
	EventsConsumedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_events_consumed_total",
			Help: "Total number of call events consumed from Kafka",
		},
		[]string{"event_type", "status"},
	)

	// EventHandleDuration 单事件处理延迟
	EventHandleDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dashboard_event_handle_duration_seconds",
			Help:    "Call event handler duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"event_type"},
	)

	// EventsSkippedTotal 无处理器或无法解析而跳过的消息计数
	EventsSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_events_skipped_total",
			Help: "Total number of Kafka messages skipped",
		},
		[]string{"reason"},
	)

	// ConsumerErrorsTotal 消费组层面的错误计数
	ConsumerErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dashboard_consumer_errors_total",
			Help: "Total number of Kafka consumer group errors",
		},
	)
)
