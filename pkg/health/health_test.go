package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPingChecker(t *testing.T) {
	tests := []struct {
		name      string
		threshold time.Duration
		pingFn    func(context.Context) error
		want      Status
	}{
		{
			name:   "健康",
			pingFn: func(context.Context) error { return nil },
			want:   StatusHealthy,
		},
		{
			name:   "不健康",
			pingFn: func(context.Context) error { return errors.New("connection refused") },
			want:   StatusUnhealthy,
		},
		{
			name:      "超过阈值降级",
			threshold: time.Nanosecond,
			pingFn: func(context.Context) error {
				time.Sleep(5 * time.Millisecond)
				return nil
			},
			want: StatusDegraded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := NewPingChecker("dep", tt.threshold, tt.pingFn)
			result := checker.Check(context.Background())
			assert.Equal(t, tt.want, result.Status)
			if tt.want == StatusUnhealthy {
				assert.NotEmpty(t, result.Error)
			}
		})
	}
}

func TestRegistryReady(t *testing.T) {
	reg := NewRegistry()
	reg.Register(NewPingChecker("postgres", 0, func(context.Context) error { return nil }))
	reg.Register(NewPingChecker("redis", 0, func(context.Context) error { return nil }))

	ready, checks := reg.Ready(context.Background())
	assert.True(t, ready)
	assert.Equal(t, map[string]bool{"postgres": true, "redis": true}, checks)

	reg.Register(NewPingChecker("clickhouse", 0, func(context.Context) error {
		return errors.New("dial timeout")
	}))

	ready, checks = reg.Ready(context.Background())
	assert.False(t, ready)
	assert.False(t, checks["clickhouse"])
	assert.True(t, checks["postgres"])
}

func TestRegistryOverallStatus(t *testing.T) {
	reg := NewRegistry()
	assert.Equal(t, StatusHealthy, reg.OverallStatus(context.Background()))

	slow := NewPingChecker("slow", time.Nanosecond, func(context.Context) error {
		time.Sleep(2 * time.Millisecond)
		return nil
	})
	reg.Register(slow)
	assert.Equal(t, StatusDegraded, reg.OverallStatus(context.Background()))

	reg.Register(NewPingChecker("down", 0, func(context.Context) error { return errors.New("down") }))
	assert.Equal(t, StatusUnhealthy, reg.OverallStatus(context.Background()))
}
