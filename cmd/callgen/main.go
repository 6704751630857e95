package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"voicedash/pkg/events"
)

var (
	brokers     = flag.String("brokers", "localhost:9092", "Kafka broker 列表，逗号分隔")
	topic       = flag.String("topic", "voice.call.events", "呼叫事件主题")
	tenants     = flag.String("tenants", "tenant-1", "租户列表，逗号分隔")
	rate        = flag.Float64("rate", 120, "每分钟发起的呼叫数")
	speedup     = flag.Float64("speedup", 60, "通话时长压缩倍率，1 为实时")
	seed        = flag.Int64("seed", 0, "随机种子，0 按当前时间播种")
	runDuration = flag.Duration("duration", 0, "运行时长，0 表示运行到收到中断信号")
)

// weightedChoice 带权取样项
type weightedChoice struct {
	value  string
	weight int
}

// 话务分布权重，与看板合成数据的分布保持一致
var (
	languageWeights = []weightedChoice{
		{"Telugu", 57},
		{"Hindi", 26},
		{"English", 17},
	}
	intentWeights = []weightedChoice{
		{"Bill Inquiry", 30},
		{"Outage Status", 23},
		{"Payment Confirmation", 18},
		{"Complaint Status", 16},
		{"New Connection", 13},
	}
	resolutionWeights = []weightedChoice{
		{"ai_resolved", 70},
		{"human_escalation", 22},
		{"abandoned", 5},
		{"transferred", 3},
	}
)

// callPlan 单通呼叫的预生成参数
// 随机数在主循环里单线程取样，呼叫协程只消费现成参数。
type callPlan struct {
	tenantID     string
	callID       string
	queueDepth   int
	waitSeconds  float64
	handleSecs   float64
	language     string
	intent       string
	resolution   string
	firstResolve bool
}

func main() {
	flag.Parse()

	if *rate <= 0 {
		log.Fatalf("rate must be positive, got %v", *rate)
	}
	if *speedup <= 0 {
		log.Fatalf("speedup must be positive, got %v", *speedup)
	}

	tenantList := splitList(*tenants)
	if len(tenantList) == 0 {
		log.Fatal("at least one tenant required")
	}

	seedVal := *seed
	if seedVal == 0 {
		seedVal = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seedVal))

	writer := &kafka.Writer{
		Addr:         kafka.TCP(splitList(*brokers)...),
		Topic:        *topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
	}
	defer writer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 中断信号或运行时长到期后停止发起新呼叫
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		if *runDuration > 0 {
			select {
			case <-quit:
			case <-time.After(*runDuration):
			}
		} else {
			<-quit
		}
		cancel()
	}()

	log.Printf("callgen started: brokers=%s topic=%s tenants=%v rate=%.0f/min speedup=%.0fx seed=%d",
		*brokers, *topic, tenantList, *rate, *speedup, seedVal)

	var (
		wg      sync.WaitGroup
		started int64
		ended   int64
		failed  int64
	)

	interval := time.Duration(float64(time.Minute) / *rate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
			plan := nextPlan(rng, tenantList)
			wg.Add(1)
			go func() {
				defer wg.Done()
				simulateCall(ctx, writer, plan, *speedup, &started, &ended, &failed)
			}()
		}
	}

	// 等在途呼叫收尾后打印统计
	wg.Wait()
	log.Printf("callgen exited: started=%d ended=%d failed=%d",
		atomic.LoadInt64(&started), atomic.LoadInt64(&ended), atomic.LoadInt64(&failed))
}

// nextPlan 生成下一通呼叫的参数
func nextPlan(rng *rand.Rand, tenantList []string) callPlan {
	resolution := pickWeighted(rng, resolutionWeights)
	return callPlan{
		tenantID:     tenantList[rng.Intn(len(tenantList))],
		callID:       uuid.New().String(),
		queueDepth:   5 + rng.Intn(31),
		waitSeconds:  8 + rng.Float64()*37,
		handleSecs:   270 + rng.Float64()*300,
		language:     pickWeighted(rng, languageWeights),
		intent:       pickWeighted(rng, intentWeights),
		resolution:   resolution,
		firstResolve: resolution == "ai_resolved" && rng.Float64() < 0.92,
	}
}

// simulateCall 发送 started 事件，压缩等待通话时长后发送 ended 事件
func simulateCall(ctx context.Context, writer *kafka.Writer, plan callPlan, speedup float64, started, ended, failed *int64) {
	startedAt := time.Now()
	startEvent := &events.CallEvent{
		EventID:    uuid.New().String(),
		EventType:  events.EventCallStarted,
		TenantID:   plan.tenantID,
		CallID:     plan.callID,
		Timestamp:  startedAt,
		QueueDepth: plan.queueDepth,
	}
	if err := publish(ctx, writer, startEvent); err != nil {
		log.Printf("publish started failed: call=%s err=%v", plan.callID, err)
		atomic.AddInt64(failed, 1)
		return
	}
	atomic.AddInt64(started, 1)

	holdFor := time.Duration(plan.handleSecs / speedup * float64(time.Second))
	select {
	case <-ctx.Done():
		// 停止时也给在途呼叫补上结束事件，避免活跃计数只增不减
	case <-time.After(holdFor):
	}

	endEvent := &events.CallEvent{
		EventID:           uuid.New().String(),
		EventType:         events.EventCallEnded,
		TenantID:          plan.tenantID,
		CallID:            plan.callID,
		Timestamp:         time.Now(),
		StartedAt:         startedAt,
		Language:          plan.language,
		Intent:            plan.intent,
		Resolution:        plan.resolution,
		FirstCallResolved: plan.firstResolve,
		HandleSeconds:     plan.handleSecs,
		WaitSeconds:       plan.waitSeconds,
	}
	// 主 ctx 可能已取消，结束事件用独立的发送超时
	sendCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := publish(sendCtx, writer, endEvent); err != nil {
		log.Printf("publish ended failed: call=%s err=%v", plan.callID, err)
		atomic.AddInt64(failed, 1)
		return
	}
	atomic.AddInt64(ended, 1)
}

// publish 以 call_id 为分区键发送事件，保证同通呼叫有序
func publish(ctx context.Context, writer *kafka.Writer, event *events.CallEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.CallID),
		Value: value,
		Time:  event.Timestamp,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "tenant_id", Value: []byte(event.TenantID)},
		},
	})
}

// pickWeighted 按权重取样
func pickWeighted(rng *rand.Rand, choices []weightedChoice) string {
	total := 0
	for _, c := range choices {
		total += c.weight
	}

	n := rng.Intn(total)
	for _, c := range choices {
		if n < c.weight {
			return c.value
		}
		n -= c.weight
	}
	return choices[len(choices)-1].value
}

// splitList 拆分逗号分隔列表并去掉空项
func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
