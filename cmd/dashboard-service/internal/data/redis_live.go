package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"voicedash/cmd/dashboard-service/internal/conf"
	"voicedash/cmd/dashboard-service/internal/domain"
)

// 实时计数器键的保留时长
const (
	activeKeyTTL = 24 * time.Hour
	queueKeyTTL  = 10 * time.Minute
	dailyKeyTTL  = 48 * time.Hour
	hourlyKeyTTL = 26 * time.Hour
)

// decrFloorScript 原子减一并钳到零，防止乱序事件把活跃数减成负值
var decrFloorScript = redis.NewScript(`
local v = redis.call('DECR', KEYS[1])
if v < 0 then
  redis.call('SET', KEYS[1], 0)
  v = 0
end
return v
`)

// NewRedisClient 创建 Redis 客户端
func NewRedisClient(config *conf.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
		MaxRetries:   config.MaxRetries,
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

// RedisLiveStore Redis 实时计数器
// 实现 domain.LiveSource（读取侧）与 domain.LiveCounterStore（摄入侧）。
type RedisLiveStore struct {
	client *redis.Client
	caps   domain.CapacityRepository
	now    func() time.Time
}

// NewRedisLiveStore 创建 Redis 实时来源
func NewRedisLiveStore(client *redis.Client, caps domain.CapacityRepository) *RedisLiveStore {
	return &RedisLiveStore{client: client, caps: caps, now: time.Now}
}

func liveKey(tenantID, field string) string {
	return fmt.Sprintf("dash:%s:live:%s", tenantID, field)
}

func dailyKey(tenantID string, day time.Time) string {
	return fmt.Sprintf("dash:%s:calls:%s", tenantID, day.Format("2006-01-02"))
}

func hourlyKey(tenantID string, at time.Time) string {
	return fmt.Sprintf("dash:%s:calls:%s:%02d", tenantID, at.Format("2006-01-02"), at.Hour())
}

func waitKey(tenantID string, day time.Time, field string) string {
	return fmt.Sprintf("dash:%s:wait:%s:%s", tenantID, day.Format("2006-01-02"), field)
}

// Snapshot 读取当前时刻的运营快照
func (s *RedisLiveStore) Snapshot(ctx context.Context, tenantID string) (*domain.LiveSnapshot, error) {
	now := s.now()

	keys := []string{
		liveKey(tenantID, "active"),
		liveKey(tenantID, "queue"),
		dailyKey(tenantID, now),
		hourlyKey(tenantID, now),
		waitKey(tenantID, now, "sum"),
		waitKey(tenantID, now, "count"),
	}

	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSnapshotUnavailable, err)
	}

	snap := &domain.LiveSnapshot{
		TenantID:     tenantID,
		ActiveCalls:  asInt(vals[0]),
		QueueSize:    asInt(vals[1]),
		CallsToday:   asInt(vals[2]),
		CallsPerHour: asInt(vals[3]),
		Timestamp:    now,
	}

	if count := asFloat(vals[5]); count > 0 {
		snap.AvgWaitSeconds = asFloat(vals[4]) / count
	}

	profile, err := s.caps.GetProfile(ctx, tenantID)
	if err != nil {
		if !errors.Is(err, domain.ErrCapacityProfileNotFound) {
			return nil, err
		}
		profile = domain.DefaultCapacityProfile(tenantID)
	}
	snap.CapacityPct = domain.CapacityUtilization(snap.ActiveCalls, profile.MaxConcurrentCalls)

	return snap, nil
}

// RecordStarted 呼叫开始
func (s *RedisLiveStore) RecordStarted(ctx context.Context, tenantID string, at time.Time, queueDepth int) error {
	pipe := s.client.Pipeline()
	active := liveKey(tenantID, "active")
	pipe.Incr(ctx, active)
	pipe.Expire(ctx, active, activeKeyTTL)
	pipe.Set(ctx, liveKey(tenantID, "queue"), queueDepth, queueKeyTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// RecordEnded 呼叫结束
func (s *RedisLiveStore) RecordEnded(ctx context.Context, tenantID string, at time.Time, waitSeconds float64) error {
	if err := decrFloorScript.Run(ctx, s.client, []string{liveKey(tenantID, "active")}).Err(); err != nil {
		return err
	}

	pipe := s.client.Pipeline()

	daily := dailyKey(tenantID, at)
	pipe.Incr(ctx, daily)
	pipe.Expire(ctx, daily, dailyKeyTTL)

	hourly := hourlyKey(tenantID, at)
	pipe.Incr(ctx, hourly)
	pipe.Expire(ctx, hourly, hourlyKeyTTL)

	sum := waitKey(tenantID, at, "sum")
	count := waitKey(tenantID, at, "count")
	pipe.IncrByFloat(ctx, sum, waitSeconds)
	pipe.Incr(ctx, count)
	pipe.Expire(ctx, sum, dailyKeyTTL)
	pipe.Expire(ctx, count, dailyKeyTTL)

	_, err := pipe.Exec(ctx)
	return err
}

func asInt(v interface{}) int {
	s, ok := v.(string)
	if !ok {
		return 0
	}
	var n int
	_, _ = fmt.Sscanf(s, "%d", &n)
	return n
}

func asFloat(v interface{}) float64 {
	s, ok := v.(string)
	if !ok {
		return 0
	}
	var f float64
	_, _ = fmt.Sscanf(s, "%f", &f)
	return f
}
