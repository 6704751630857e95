package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/go-kratos/kratos/v2/log"

	"voicedash/pkg/monitoring"
)

// EventHandler 事件处理器接口
type EventHandler interface {
	// Handle 处理事件
	Handle(ctx context.Context, event *CallEvent) error

	// SupportedEventTypes 支持的事件类型
	SupportedEventTypes() []string
}

// Consumer 事件消费者接口
type Consumer interface {
	// Subscribe 订阅事件
	Subscribe(ctx context.Context, topics []string, handler EventHandler) error

	// Close 关闭消费者
	Close() error
}

// KafkaConsumer Kafka 事件消费者
type KafkaConsumer struct {
	client        sarama.ConsumerGroup
	config        *ConsumerConfig
	log           *log.Helper
	handlers      map[string]EventHandler
	handlersMutex sync.RWMutex
	wg            sync.WaitGroup
}

// ConsumerConfig 消费者配置
type ConsumerConfig struct {
	Brokers       []string
	GroupID       string
	AutoCommit    bool
	InitialOffset int64 // sarama.OffsetNewest 或 sarama.OffsetOldest
}

// DefaultConsumerConfig 默认配置
func DefaultConsumerConfig(groupID string) *ConsumerConfig {
	return &ConsumerConfig{
		Brokers:       []string{"localhost:9092"},
		GroupID:       groupID,
		AutoCommit:    true,
		InitialOffset: sarama.OffsetNewest,
	}
}

// NewKafkaConsumer 创建 Kafka 消费者
func NewKafkaConsumer(config *ConsumerConfig, logger log.Logger) (*KafkaConsumer, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	kafkaConfig := sarama.NewConfig()
	kafkaConfig.Version = sarama.V3_6_0_0
	kafkaConfig.Consumer.Return.Errors = true
	kafkaConfig.Consumer.Offsets.Initial = config.InitialOffset
	kafkaConfig.Consumer.Offsets.AutoCommit.Enable = config.AutoCommit
	kafkaConfig.Consumer.Group.Rebalance.Strategy = sarama.NewBalanceStrategyRoundRobin()

	client, err := sarama.NewConsumerGroup(config.Brokers, config.GroupID, kafkaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	return &KafkaConsumer{
		client:   client,
		config:   config,
		log:      log.NewHelper(logger),
		handlers: make(map[string]EventHandler),
	}, nil
}

// Subscribe 订阅事件并启动消费循环
func (c *KafkaConsumer) Subscribe(ctx context.Context, topics []string, handler EventHandler) error {
	c.handlersMutex.Lock()
	for _, eventType := range handler.SupportedEventTypes() {
		c.handlers[eventType] = handler
	}
	c.handlersMutex.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		consumerHandler := &consumerGroupHandler{consumer: c}

		for {
			select {
			case <-ctx.Done():
				c.log.Info("consumer context cancelled, stopping")
				return
			default:
				// Consume 在再均衡后返回，循环重新加入
				if err := c.client.Consume(ctx, topics, consumerHandler); err != nil {
					c.log.Errorf("consume error: %v", err)
					return
				}
			}
		}
	}()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for err := range c.client.Errors() {
			monitoring.ConsumerErrorsTotal.Inc()
			c.log.Errorf("consumer error: %v", err)
		}
	}()

	return nil
}

// Close 关闭消费者
func (c *KafkaConsumer) Close() error {
	if err := c.client.Close(); err != nil {
		return fmt.Errorf("failed to close consumer: %w", err)
	}
	c.wg.Wait()
	return nil
}

// getHandler 获取事件处理器
func (c *KafkaConsumer) getHandler(eventType string) (EventHandler, bool) {
	c.handlersMutex.RLock()
	defer c.handlersMutex.RUnlock()
	handler, ok := c.handlers[eventType]
	return handler, ok
}

// consumerGroupHandler Sarama ConsumerGroupHandler 实现
type consumerGroupHandler struct {
	consumer *KafkaConsumer
}

// Setup 设置
func (h *consumerGroupHandler) Setup(sarama.ConsumerGroupSession) error {
	return nil
}

// Cleanup 清理
func (h *consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

// ConsumeClaim 消费消息
func (h *consumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		if err := h.handleMessage(session.Context(), message); err != nil {
			h.consumer.log.Errorf("failed to handle message at %s/%d/%d: %v",
				message.Topic, message.Partition, message.Offset, err)
			// 单条失败不阻塞分区消费
		}
		session.MarkMessage(message, "")
	}
	return nil
}

// handleMessage 处理单条消息
func (h *consumerGroupHandler) handleMessage(ctx context.Context, message *sarama.ConsumerMessage) error {
	var event CallEvent
	if err := json.Unmarshal(message.Value, &event); err != nil {
		monitoring.EventsSkippedTotal.WithLabelValues("unmarshal").Inc()
		return fmt.Errorf("failed to unmarshal event: %w", err)
	}

	handler, ok := h.consumer.getHandler(event.EventType)
	if !ok {
		// 没有注册的处理器，跳过
		monitoring.EventsSkippedTotal.WithLabelValues("no_handler").Inc()
		return nil
	}

	start := time.Now()
	err := handler.Handle(ctx, &event)
	monitoring.EventHandleDuration.WithLabelValues(event.EventType).Observe(time.Since(start).Seconds())

	if err != nil {
		monitoring.EventsConsumedTotal.WithLabelValues(event.EventType, "error").Inc()
		return fmt.Errorf("handler failed: %w", err)
	}
	monitoring.EventsConsumedTotal.WithLabelValues(event.EventType, "success").Inc()
	return nil
}

// FunctionHandler 函数式事件处理器
type FunctionHandler struct {
	eventTypes []string
	handleFunc func(context.Context, *CallEvent) error
}

// NewFunctionHandler 创建函数式处理器
func NewFunctionHandler(
	eventTypes []string,
	fn func(context.Context, *CallEvent) error,
) *FunctionHandler {
	return &FunctionHandler{
		eventTypes: eventTypes,
		handleFunc: fn,
	}
}

// Handle 处理事件
func (f *FunctionHandler) Handle(ctx context.Context, event *CallEvent) error {
	return f.handleFunc(ctx, event)
}

// SupportedEventTypes 支持的事件类型
func (f *FunctionHandler) SupportedEventTypes() []string {
	return f.eventTypes
}
