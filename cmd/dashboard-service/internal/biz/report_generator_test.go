package biz

import (
	"context"
	"testing"
	"time"

	"voicedash/cmd/dashboard-service/internal/domain"
)

func TestReportGeneratorBuildCustomRange(t *testing.T) {
	history := defaultHistory()
	history.daily = nil
	for day := 10; day <= 16; day++ {
		history.daily = append(history.daily, domain.DailyVolume{
			Date:      time.Date(2025, 6, day, 0, 0, 0, 0, time.UTC),
			Total:     int64(5000 + day),
			Contained: int64(3500 + day),
		})
	}

	g := NewReportGenerator(history, &stubCaps{})
	g.now = func() time.Time { return time.Date(2025, 6, 16, 14, 0, 0, 0, time.UTC) }

	rng, err := domain.NewTimeRange(
		domain.RangeCustom,
		time.Date(2025, 6, 12, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC),
		g.now(),
	)
	if err != nil {
		t.Fatalf("NewTimeRange: %v", err)
	}

	report := &domain.Report{ID: "r1", TenantID: "tenant-1", Type: domain.ReportTypeCustom, Range: rng}
	payload, err := g.Build(context.Background(), report)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if payload.RangeStart != "2025-06-12" || payload.RangeEnd != "2025-06-14" {
		t.Fatalf("range = %s..%s", payload.RangeStart, payload.RangeEnd)
	}

	// 范围外的日期被裁剪
	if len(payload.Daily) != 3 {
		t.Fatalf("daily rows = %d, want 3", len(payload.Daily))
	}
	if payload.Daily[0].Date != "2025-06-12" || payload.Daily[2].Date != "2025-06-14" {
		t.Fatalf("daily = %+v", payload.Daily)
	}

	if len(payload.Intents) != 3 || len(payload.Resolutions) != 2 {
		t.Fatalf("breakdown rows = %d/%d", len(payload.Intents), len(payload.Resolutions))
	}
}

func TestReportGeneratorEncodeUnknownFormat(t *testing.T) {
	g := NewReportGenerator(defaultHistory(), &stubCaps{})
	if _, _, err := g.Encode(&ReportPayload{}, "pdf"); err != domain.ErrInvalidReportFormat {
		t.Fatalf("err = %v, want ErrInvalidReportFormat", err)
	}
}
