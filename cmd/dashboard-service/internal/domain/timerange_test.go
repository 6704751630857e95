package domain

import (
	"errors"
	"testing"
	"time"
)

func TestNewTimeRange(t *testing.T) {
	now := time.Date(2025, 6, 15, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		name      string
		preset    RangePreset
		start     time.Time
		end       time.Time
		wantStart time.Time
		wantDays  int
		wantErr   error
	}{
		{
			name:      "今日",
			preset:    RangeToday,
			wantStart: time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC),
			wantDays:  1,
		},
		{
			name:      "空预设回退到今日",
			preset:    "",
			wantStart: time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC),
			wantDays:  1,
		},
		{
			name:      "最近七天",
			preset:    RangeWeek,
			wantStart: time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC),
			wantDays:  7,
		},
		{
			name:      "自定义区间",
			preset:    RangeCustom,
			start:     time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
			end:       time.Date(2025, 6, 10, 2, 0, 0, 0, time.UTC),
			wantStart: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
			wantDays:  10,
		},
		{
			name:    "自定义区间终点早于起点",
			preset:  RangeCustom,
			start:   time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC),
			end:     time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
			wantErr: ErrInvalidTimeRange,
		},
		{
			name:    "自定义区间缺少边界",
			preset:  RangeCustom,
			wantErr: ErrInvalidTimeRange,
		},
		{
			name:    "未知预设",
			preset:  "quarter",
			wantErr: ErrInvalidTimeRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rng, err := NewTimeRange(tt.preset, tt.start, tt.end, now)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !rng.Start.Equal(tt.wantStart) {
				t.Errorf("Start = %v, want %v", rng.Start, tt.wantStart)
			}
			if got := rng.Days(); got != tt.wantDays {
				t.Errorf("Days() = %d, want %d", got, tt.wantDays)
			}
			if !rng.End.After(rng.Start) {
				t.Errorf("End %v not after Start %v", rng.End, rng.Start)
			}
		})
	}
}

func TestParseViewMode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    ViewMode
		wantErr bool
	}{
		{"桌面版", "desktop", ViewDesktop, false},
		{"大屏版", "tv", ViewTV, false},
		{"空值回退桌面版", "", ViewDesktop, false},
		{"未知模式", "mobile", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseViewMode(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownViewMode) {
					t.Fatalf("err = %v, want ErrUnknownViewMode", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseViewMode(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestReportLifecycle(t *testing.T) {
	rng, _ := NewTimeRange(RangeToday, time.Time{}, time.Time{}, time.Now())

	report, err := NewReport("tenant-1", ReportTypeDaily, "daily summary", "scheduler", rng)
	if err != nil {
		t.Fatalf("NewReport: %v", err)
	}
	if report.Status != ReportStatusPending {
		t.Fatalf("initial status = %s, want pending", report.Status)
	}
	if report.ID == "" {
		t.Fatal("report ID should be generated")
	}

	report.Start()
	if report.Status != ReportStatusProcessing {
		t.Fatalf("status after Start = %s, want processing", report.Status)
	}

	report.Complete("https://files.example.com/reports/r1.json")
	if report.Status != ReportStatusCompleted || report.CompletedAt == nil {
		t.Fatalf("status after Complete = %s, CompletedAt = %v", report.Status, report.CompletedAt)
	}

	failed, _ := NewReport("tenant-1", ReportTypeWeekly, "weekly summary", "scheduler", rng)
	failed.Fail("history source unavailable")
	if failed.Status != ReportStatusFailed || failed.FailReason == "" {
		t.Fatalf("status after Fail = %s, reason = %q", failed.Status, failed.FailReason)
	}

	if _, err := NewReport("tenant-1", "quarterly", "q", "scheduler", rng); !errors.Is(err, ErrInvalidReportType) {
		t.Errorf("unknown type err = %v, want ErrInvalidReportType", err)
	}
	if _, err := NewReport("", ReportTypeDaily, "d", "scheduler", rng); !errors.Is(err, ErrTenantRequired) {
		t.Errorf("missing tenant err = %v, want ErrTenantRequired", err)
	}
}
