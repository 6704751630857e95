package websocket

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-kratos/kratos/v2/log"

	"voicedash/cmd/dashboard-service/internal/domain"
)

// PayloadBuilder 构建某订阅维度的看板载荷
type PayloadBuilder interface {
	BuildPayload(ctx context.Context, tenantID string, mode domain.ViewMode) ([]byte, error)
}

// PayloadBuilderFunc 函数式载荷构建器
type PayloadBuilderFunc func(ctx context.Context, tenantID string, mode domain.ViewMode) ([]byte, error)

// BuildPayload 构建载荷
func (f PayloadBuilderFunc) BuildPayload(ctx context.Context, tenantID string, mode domain.ViewMode) ([]byte, error) {
	return f(ctx, tenantID, mode)
}

// Broadcaster 按刷新周期向订阅组推送看板载荷
// 每个 tick 对每个有订阅者的 (租户, 模式) 组合构建一次载荷。
type Broadcaster struct {
	hub      *Hub
	builder  PayloadBuilder
	interval time.Duration
	log      *log.Helper
}

// NewBroadcaster 创建推送器
func NewBroadcaster(hub *Hub, builder PayloadBuilder, interval time.Duration, logger log.Logger) *Broadcaster {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Broadcaster{
		hub:      hub,
		builder:  builder,
		interval: interval,
		log:      log.NewHelper(log.With(logger, "module", "ws-broadcaster")),
	}
}

// Run 运行推送循环
func (b *Broadcaster) Run(ctx context.Context) {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			b.log.Info("broadcaster shutting down")
			return
		case <-ticker.C:
			b.pushAll(ctx)
		}
	}
}

// PushTo 对单个客户端立即推送一帧，用于连接建立后的首屏
func (b *Broadcaster) PushTo(ctx context.Context, client *Client) {
	frame, err := b.frame(ctx, client.Sub)
	if err != nil {
		b.log.Warnf("initial frame for %s failed: %v", client.ID, err)
		return
	}
	if err := client.SendMessage(frame); err != nil {
		b.log.Warnf("initial frame send to %s failed: %v", client.ID, err)
	}
}

// pushAll 为每个活跃订阅组构建并广播一帧
func (b *Broadcaster) pushAll(ctx context.Context) {
	for _, sub := range b.hub.Subscriptions() {
		frame, err := b.frame(ctx, sub)
		if err != nil {
			b.log.Warnf("build frame for tenant %s failed: %v", sub.TenantID, err)
			continue
		}
		b.hub.Broadcast <- &BroadcastMessage{Sub: sub, Message: frame}
	}
}

func (b *Broadcaster) frame(ctx context.Context, sub Subscription) ([]byte, error) {
	payload, err := b.builder.BuildPayload(ctx, sub.TenantID, sub.Mode)
	if err != nil {
		return nil, err
	}

	envelope := struct {
		Type      string          `json:"type"`
		Data      json.RawMessage `json:"data"`
		Timestamp int64           `json:"timestamp"`
	}{
		Type:      MessageTypeSummary,
		Data:      payload,
		Timestamp: time.Now().Unix(),
	}
	return json.Marshal(envelope)
}
