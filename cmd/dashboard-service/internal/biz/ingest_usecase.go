package biz

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-kratos/kratos/v2/log"

	"voicedash/cmd/dashboard-service/internal/domain"
	"voicedash/pkg/events"
	"voicedash/pkg/resilience"
)

const (
	recordBatchSize     = 200             // 批量写入阈值
	recordFlushInterval = 2 * time.Second // 定时落盘间隔
)

// insertRetryPolicy 历史存储写入的重试策略
// 次数和延迟都收得很紧，避免阻塞定时落盘循环。
var insertRetryPolicy = resilience.Policy{
	MaxRetries:   2,
	InitialDelay: 100 * time.Millisecond,
	MaxDelay:     time.Second,
	Multiplier:   2.0,
	Jitter:       0.2,
}

// IngestUsecase 呼叫事件摄入用例
// 开始/结束事件实时更新计数器，结束记录攒批写入历史存储。
type IngestUsecase struct {
	counters domain.LiveCounterStore
	records  domain.CallRecordStore
	log      *log.Helper

	mu      sync.Mutex
	pending []*domain.CallRecord
}

// NewIngestUsecase 创建摄入用例
func NewIngestUsecase(
	counters domain.LiveCounterStore,
	records domain.CallRecordStore,
	logger log.Logger,
) *IngestUsecase {
	return &IngestUsecase{
		counters: counters,
		records:  records,
		log:      log.NewHelper(logger),
		pending:  make([]*domain.CallRecord, 0, recordBatchSize),
	}
}

// HandleEvent 处理单条呼叫事件
func (uc *IngestUsecase) HandleEvent(ctx context.Context, ev *events.CallEvent) error {
	if ev.TenantID == "" {
		return domain.ErrTenantRequired
	}

	switch ev.EventType {
	case events.EventCallStarted:
		return uc.counters.RecordStarted(ctx, ev.TenantID, ev.Timestamp, ev.QueueDepth)
	case events.EventCallEnded:
		return uc.handleEnded(ctx, ev)
	default:
		// 未知事件直接忽略，摄入链路不因脏数据中断
		uc.log.WithContext(ctx).Warnf("ignore unknown event type %s", ev.EventType)
		return nil
	}
}

// Run 周期性落盘攒批记录，ctx 取消时做最终落盘
func (uc *IngestUsecase) Run(ctx context.Context) {
	ticker := time.NewTicker(recordFlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			uc.flush(context.Background())
			return
		case <-ticker.C:
			uc.flush(ctx)
		}
	}
}

func (uc *IngestUsecase) handleEnded(ctx context.Context, ev *events.CallEvent) error {
	if err := uc.counters.RecordEnded(ctx, ev.TenantID, ev.Timestamp, ev.WaitSeconds); err != nil {
		return fmt.Errorf("record ended: %w", err)
	}

	record := &domain.CallRecord{
		TenantID:          ev.TenantID,
		CallID:            ev.CallID,
		StartedAt:         ev.StartedAt,
		EndedAt:           ev.Timestamp,
		Language:          ev.Language,
		Intent:            ev.Intent,
		Resolution:        domain.Resolution(ev.Resolution),
		FirstCallResolved: ev.FirstCallResolved,
		HandleSeconds:     ev.HandleSeconds,
		WaitSeconds:       ev.WaitSeconds,
	}

	uc.mu.Lock()
	uc.pending = append(uc.pending, record)
	full := len(uc.pending) >= recordBatchSize
	uc.mu.Unlock()

	if full {
		uc.flush(ctx)
	}
	return nil
}

// flush 批量写入攒批记录，重试耗尽后记录日志丢弃避免积压
func (uc *IngestUsecase) flush(ctx context.Context) {
	uc.mu.Lock()
	batch := uc.pending
	uc.pending = make([]*domain.CallRecord, 0, recordBatchSize)
	uc.mu.Unlock()

	if len(batch) == 0 {
		return
	}

	err := resilience.Retry(ctx, insertRetryPolicy, func() error {
		return uc.records.InsertRecords(ctx, batch)
	})
	if err != nil {
		uc.log.WithContext(ctx).Errorf("insert %d call records failed: %v", len(batch), err)
	}
}
