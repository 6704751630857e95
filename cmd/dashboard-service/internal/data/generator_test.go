package data

import (
	"context"
	"testing"
	"time"

	"voicedash/cmd/dashboard-service/internal/domain"
)

func businessClock() time.Time {
	return time.Date(2025, 6, 16, 14, 0, 0, 0, time.UTC)
}

func nightClock() time.Time {
	return time.Date(2025, 6, 16, 3, 0, 0, 0, time.UTC)
}

func TestGeneratorSnapshotRanges(t *testing.T) {
	tests := []struct {
		name            string
		clock           func() time.Time
		minActive       int
		maxActive       int
		minCallsPerHour int
		maxCallsPerHour int
	}{
		// 工作时段系数 1.1~1.3
		{"工作时段", businessClock, 88, 234, 220, 585},
		// 夜间系数 0.5~0.6
		{"夜间时段", nightClock, 40, 108, 100, 270},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGeneratorWithClock(42, tt.clock)
			for i := 0; i < 200; i++ {
				snap, err := g.Snapshot(context.Background(), "tenant-1")
				if err != nil {
					t.Fatalf("Snapshot: %v", err)
				}
				if snap.ActiveCalls < tt.minActive || snap.ActiveCalls > tt.maxActive {
					t.Fatalf("ActiveCalls = %d, want in [%d, %d]", snap.ActiveCalls, tt.minActive, tt.maxActive)
				}
				if snap.QueueSize < 5 || snap.QueueSize > 35 {
					t.Fatalf("QueueSize = %d, want in [5, 35]", snap.QueueSize)
				}
				if snap.CapacityPct < 45 || snap.CapacityPct > 85 {
					t.Fatalf("CapacityPct = %v, want in [45, 85]", snap.CapacityPct)
				}
				if snap.AvgWaitSeconds < 8 || snap.AvgWaitSeconds > 45 {
					t.Fatalf("AvgWaitSeconds = %v, want in [8, 45]", snap.AvgWaitSeconds)
				}
				if snap.CallsPerHour < tt.minCallsPerHour || snap.CallsPerHour > tt.maxCallsPerHour {
					t.Fatalf("CallsPerHour = %d, want in [%d, %d]", snap.CallsPerHour, tt.minCallsPerHour, tt.maxCallsPerHour)
				}
				if snap.TenantID != "tenant-1" {
					t.Fatalf("TenantID = %q", snap.TenantID)
				}
			}
		})
	}
}

func TestGeneratorDeterminism(t *testing.T) {
	a := NewGeneratorWithClock(7, businessClock)
	b := NewGeneratorWithClock(7, businessClock)

	ctx := context.Background()
	for i := 0; i < 10; i++ {
		sa, _ := a.Snapshot(ctx, "t")
		sb, _ := b.Snapshot(ctx, "t")
		if *sa != *sb {
			t.Fatalf("iteration %d: snapshots diverge: %+v vs %+v", i, sa, sb)
		}
	}

	rng, _ := domain.NewTimeRange(domain.RangeToday, time.Time{}, time.Time{}, businessClock())
	ka, _ := a.KPIStats(ctx, "t", rng)
	kb, _ := b.KPIStats(ctx, "t", rng)
	if *ka != *kb {
		t.Fatalf("kpi stats diverge: %+v vs %+v", ka, kb)
	}
}

func TestGeneratorKPIRanges(t *testing.T) {
	g := NewGeneratorWithClock(1, businessClock)
	rng, _ := domain.NewTimeRange(domain.RangeToday, time.Time{}, time.Time{}, businessClock())

	for i := 0; i < 200; i++ {
		stats, err := g.KPIStats(context.Background(), "t", rng)
		if err != nil {
			t.Fatalf("KPIStats: %v", err)
		}
		if stats.ContainmentPct < 68 || stats.ContainmentPct > 78 {
			t.Fatalf("ContainmentPct = %v, want in [68, 78]", stats.ContainmentPct)
		}
		if stats.FCRPct < 65 || stats.FCRPct > 75 {
			t.Fatalf("FCRPct = %v, want in [65, 75]", stats.FCRPct)
		}
		if stats.AHTMinutes < 4.5 || stats.AHTMinutes > 7.5 {
			t.Fatalf("AHTMinutes = %v, want in [4.5, 7.5]", stats.AHTMinutes)
		}
		if stats.CallsToday < 4000 || stats.CallsToday > 5500 {
			t.Fatalf("CallsToday = %d, want in [4000, 5500]", stats.CallsToday)
		}
		if stats.CallsYesterday < 4000 || stats.CallsYesterday > 5500 {
			t.Fatalf("CallsYesterday = %d, want in [4000, 5500]", stats.CallsYesterday)
		}
	}
}

func TestGeneratorHourlyVolume(t *testing.T) {
	g := NewGeneratorWithClock(3, businessClock)
	now := businessClock()

	hours, err := g.HourlyVolume(context.Background(), "t", now)
	if err != nil {
		t.Fatalf("HourlyVolume: %v", err)
	}
	if len(hours) != 24 {
		t.Fatalf("len = %d, want 24", len(hours))
	}

	for _, h := range hours {
		if h.Hour > now.Hour() {
			if h.Today != 0 {
				t.Errorf("hour %d is in the future, Today = %d, want 0", h.Hour, h.Today)
			}
		} else if h.Today <= 0 {
			t.Errorf("hour %d: Today = %d, want > 0", h.Hour, h.Today)
		}
		if h.Yesterday <= 0 {
			t.Errorf("hour %d: Yesterday = %d, want > 0", h.Hour, h.Yesterday)
		}
		// 工作时段峰值区间与夜间谷值区间
		if h.Hour >= businessHourStart && h.Hour <= businessHourEnd {
			if h.Yesterday < 250 || h.Yesterday > 450 {
				t.Errorf("business hour %d: Yesterday = %d, want in [250, 450]", h.Hour, h.Yesterday)
			}
		} else if h.Yesterday < 100 || h.Yesterday > 200 {
			t.Errorf("off hour %d: Yesterday = %d, want in [100, 200]", h.Hour, h.Yesterday)
		}
	}

	// 查询昨日不做未来小时置零
	yesterday, err := g.HourlyVolume(context.Background(), "t", now.AddDate(0, 0, -1))
	if err != nil {
		t.Fatalf("HourlyVolume yesterday: %v", err)
	}
	for _, h := range yesterday {
		if h.Today <= 0 {
			t.Errorf("past day hour %d: Today = %d, want > 0", h.Hour, h.Today)
		}
	}
}

func TestGeneratorDailyVolume(t *testing.T) {
	g := NewGeneratorWithClock(5, businessClock)

	days, err := g.DailyVolume(context.Background(), "t", 7)
	if err != nil {
		t.Fatalf("DailyVolume: %v", err)
	}
	if len(days) != 7 {
		t.Fatalf("len = %d, want 7", len(days))
	}

	for i, d := range days {
		if d.Total < 5500 || d.Total > 7500 {
			t.Errorf("day %d: Total = %d, want in [5500, 7500]", i, d.Total)
		}
		ratio := float64(d.Contained) / float64(d.Total)
		if ratio < 0.67 || ratio > 0.78 {
			t.Errorf("day %d: contained ratio = %v, want in [0.68, 0.78]", i, ratio)
		}
		if i > 0 && !days[i-1].Date.Before(d.Date) {
			t.Errorf("dates not ascending: %v >= %v", days[i-1].Date, d.Date)
		}
	}
	last := days[len(days)-1].Date
	if last.Day() != businessClock().Day() {
		t.Errorf("last day = %v, want today", last)
	}
}

func TestGeneratorBreakdowns(t *testing.T) {
	g := NewGeneratorWithClock(9, businessClock)
	rng, _ := domain.NewTimeRange(domain.RangeToday, time.Time{}, time.Time{}, businessClock())
	ctx := context.Background()

	langs, err := g.Breakdown(ctx, "t", domain.BreakdownLanguage, rng)
	if err != nil {
		t.Fatalf("Breakdown language: %v", err)
	}
	wantLangs := []string{"Telugu", "Hindi", "English"}
	if len(langs.Items) != len(wantLangs) {
		t.Fatalf("language items = %d, want %d", len(langs.Items), len(wantLangs))
	}
	var pctSum float64
	for i, item := range langs.Items {
		if item.Label != wantLangs[i] {
			t.Errorf("language[%d] = %q, want %q (order matters)", i, item.Label, wantLangs[i])
		}
		if item.Count <= 0 {
			t.Errorf("language %q count = %d", item.Label, item.Count)
		}
		pctSum += item.Pct
	}
	if pctSum < 99.0 || pctSum > 101.0 {
		t.Errorf("language pct sum = %v, want ~100", pctSum)
	}
	if langs.Items[0].Count <= langs.Items[1].Count {
		t.Errorf("Telugu (%d) should dominate Hindi (%d)", langs.Items[0].Count, langs.Items[1].Count)
	}

	intents, err := g.Breakdown(ctx, "t", domain.BreakdownIntent, rng)
	if err != nil {
		t.Fatalf("Breakdown intent: %v", err)
	}
	wantIntents := []string{"Bill Inquiry", "Outage Status", "Payment Confirmation", "Complaint Status", "New Connection"}
	for i, item := range intents.Items {
		if item.Label != wantIntents[i] {
			t.Errorf("intent[%d] = %q, want %q", i, item.Label, wantIntents[i])
		}
	}

	res, err := g.Breakdown(ctx, "t", domain.BreakdownResolution, rng)
	if err != nil {
		t.Fatalf("Breakdown resolution: %v", err)
	}
	if res.Items[0].Label != "AI Resolved" || res.Total <= 0 {
		t.Errorf("resolution breakdown = %+v", res)
	}

	if _, err := g.Breakdown(ctx, "t", "channel", rng); err == nil {
		t.Error("unknown breakdown kind should error")
	}
}
