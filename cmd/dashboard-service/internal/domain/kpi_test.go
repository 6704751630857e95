package domain

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestContainmentRate(t *testing.T) {
	tests := []struct {
		name      string
		contained int64
		total     int64
		want      float64
	}{
		{"标准闭环率", 3500, 5000, 70},
		{"全部闭环", 5000, 5000, 100},
		{"零闭环", 0, 5000, 0},
		{"总量为零", 100, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ContainmentRate(tt.contained, tt.total)
			if !almostEqual(got, tt.want) {
				t.Errorf("ContainmentRate(%d, %d) = %v, want %v", tt.contained, tt.total, got, tt.want)
			}
		})
	}
}

func TestAverageHandleTime(t *testing.T) {
	tests := []struct {
		name         string
		totalMinutes float64
		calls        int64
		want         float64
	}{
		{"标准处理时长", 30000, 5000, 6},
		{"单通呼叫", 7.5, 1, 7.5},
		{"呼叫量为零", 30000, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AverageHandleTime(tt.totalMinutes, tt.calls)
			if !almostEqual(got, tt.want) {
				t.Errorf("AverageHandleTime(%v, %d) = %v, want %v", tt.totalMinutes, tt.calls, got, tt.want)
			}
		})
	}
}

func TestCapacityUtilization(t *testing.T) {
	tests := []struct {
		name     string
		active   int
		capacity int
		want     float64
	}{
		{"标准利用率", 180, 300, 60},
		{"满载", 300, 300, 100},
		{"容量为零", 180, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CapacityUtilization(tt.active, tt.capacity)
			if !almostEqual(got, tt.want) {
				t.Errorf("CapacityUtilization(%d, %d) = %v, want %v", tt.active, tt.capacity, got, tt.want)
			}
		})
	}
}

func TestAHTGaugeScore(t *testing.T) {
	tests := []struct {
		name string
		aht  float64
		want float64
	}{
		{"六分钟", 6, 50},
		{"目标八分钟", 8, 100 - 8.0/12.0*100},
		{"达到上限", 12, 0},
		{"超过上限不为负", 20, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AHTGaugeScore(tt.aht)
			if !almostEqual(got, tt.want) {
				t.Errorf("AHTGaugeScore(%v) = %v, want %v", tt.aht, got, tt.want)
			}
		})
	}
}

func TestDeltaPct(t *testing.T) {
	tests := []struct {
		name     string
		current  float64
		previous float64
		want     float64
	}{
		{"上升", 5500, 5000, 10},
		{"下降", 4500, 5000, -10},
		{"基期为零", 5000, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeltaPct(tt.current, tt.previous)
			if !almostEqual(got, tt.want) {
				t.Errorf("DeltaPct(%v, %v) = %v, want %v", tt.current, tt.previous, got, tt.want)
			}
		})
	}
}

func TestKPIStatsDerive(t *testing.T) {
	stats := &KPIStats{
		TenantID:       "tenant-1",
		ContainmentPct: 70,
		FCRPct:         72,
		AHTMinutes:     6,
		CallsToday:     5000,
		CallsYesterday: 4000,
	}
	profile := DefaultCapacityProfile("tenant-1")

	snap := stats.Derive(profile)

	if snap.AIResolved != 3500 {
		t.Errorf("AIResolved = %d, want 3500", snap.AIResolved)
	}
	if snap.Escalated != 1500 {
		t.Errorf("Escalated = %d, want 1500", snap.Escalated)
	}
	if !almostEqual(snap.CostSavings, 3500*50) {
		t.Errorf("CostSavings = %v, want %v", snap.CostSavings, 3500*50.0)
	}
	if !almostEqual(snap.CallsDeltaPct, 25) {
		t.Errorf("CallsDeltaPct = %v, want 25", snap.CallsDeltaPct)
	}
	if !almostEqual(snap.AHTGaugeScore, 50) {
		t.Errorf("AHTGaugeScore = %v, want 50", snap.AHTGaugeScore)
	}
	if snap.ContainmentTarget != DefaultContainmentTarget || snap.FCRTarget != DefaultFCRTarget {
		t.Errorf("targets = (%v, %v), want (%v, %v)",
			snap.ContainmentTarget, snap.FCRTarget, DefaultContainmentTarget, DefaultFCRTarget)
	}
}
