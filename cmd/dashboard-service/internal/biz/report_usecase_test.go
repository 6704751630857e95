package biz

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-kratos/kratos/v2/log"

	"voicedash/cmd/dashboard-service/internal/domain"
)

type memReportRepo struct {
	mu      sync.Mutex
	reports map[string]*domain.Report
}

func newMemReportRepo() *memReportRepo {
	return &memReportRepo{reports: make(map[string]*domain.Report)}
}

func (m *memReportRepo) CreateReport(_ context.Context, r *domain.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.reports[r.ID] = &cp
	return nil
}

func (m *memReportRepo) GetReport(_ context.Context, id string) (*domain.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[id]
	if !ok {
		return nil, domain.ErrReportNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memReportRepo) UpdateReport(_ context.Context, r *domain.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reports[r.ID]; !ok {
		return domain.ErrReportNotFound
	}
	cp := *r
	m.reports[r.ID] = &cp
	return nil
}

func (m *memReportRepo) ListReports(_ context.Context, tenantID string, limit, offset int) ([]*domain.Report, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Report
	for _, r := range m.reports {
		if r.TenantID == tenantID {
			cp := *r
			out = append(out, &cp)
		}
	}
	total := len(out)
	if offset > len(out) {
		offset = len(out)
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, total, nil
}

func (m *memReportRepo) DeleteReport(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reports[id]; !ok {
		return domain.ErrReportNotFound
	}
	delete(m.reports, id)
	return nil
}

type stubUploader struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	deleted []string
	err     error
}

func newStubUploader() *stubUploader {
	return &stubUploader{objects: make(map[string][]byte), types: make(map[string]string)}
}

func (s *stubUploader) Upload(_ context.Context, objectName string, data []byte, contentType string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	s.objects[objectName] = data
	s.types[objectName] = contentType
	return "https://files.local/" + objectName, nil
}

func (s *stubUploader) Delete(_ context.Context, objectName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, objectName)
	s.deleted = append(s.deleted, objectName)
	return nil
}

func (s *stubUploader) object(name string) ([]byte, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.objects[name], s.types[name]
}

func newReportTestUsecase(repo domain.ReportRepository, uploader ReportUploader) *ReportUsecase {
	gen := NewReportGenerator(defaultHistory(), &stubCaps{})
	return NewReportUsecase(repo, gen, uploader, testConfig(), log.NewStdLogger(io.Discard))
}

func waitReportStatus(t *testing.T, repo *memReportRepo, id string, want domain.ReportStatus) *domain.Report {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		r, err := repo.GetReport(context.Background(), id)
		if err != nil {
			t.Fatalf("GetReport: %v", err)
		}
		if r.Status == want {
			return r
		}
		if time.Now().After(deadline) {
			t.Fatalf("report %s status = %s, want %s", id, r.Status, want)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestReportUsecaseCreateAndGenerate(t *testing.T) {
	repo := newMemReportRepo()
	uploader := newStubUploader()
	uc := newReportTestUsecase(repo, uploader)

	report, err := uc.CreateReport(context.Background(), "tenant-1", domain.ReportTypeDaily, domain.ReportFormatJSON, "日报", "ops", time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("CreateReport: %v", err)
	}
	if report.Status != domain.ReportStatusPending {
		t.Fatalf("Status = %s, want pending", report.Status)
	}

	done := waitReportStatus(t, repo, report.ID, domain.ReportStatusCompleted)
	if done.FileURL == "" {
		t.Fatal("FileURL empty after completion")
	}
	if done.Data["total_calls"] == nil {
		t.Fatalf("Data summary missing: %+v", done.Data)
	}

	data, contentType := uploader.object(reportObjectName(done))
	if contentType != "application/json" {
		t.Fatalf("contentType = %s", contentType)
	}
	payload := &ReportPayload{}
	if err := json.Unmarshal(data, payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.KPIs.TotalCalls != 5000 || payload.KPIs.AIResolved != 3500 {
		t.Fatalf("KPIs = %+v", payload.KPIs)
	}
	if len(payload.Languages) != 3 || payload.Languages[0].Label != "Telugu" {
		t.Fatalf("Languages = %+v", payload.Languages)
	}
}

func TestReportUsecaseCSVFormat(t *testing.T) {
	repo := newMemReportRepo()
	uploader := newStubUploader()
	uc := newReportTestUsecase(repo, uploader)

	report, err := uc.CreateReport(context.Background(), "tenant-1", domain.ReportTypeWeekly, domain.ReportFormatCSV, "周报", "ops", time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("CreateReport: %v", err)
	}

	done := waitReportStatus(t, repo, report.ID, domain.ReportStatusCompleted)
	data, contentType := uploader.object(reportObjectName(done))
	if contentType != "text/csv" {
		t.Fatalf("contentType = %s", contentType)
	}
	body := string(data)
	if !strings.HasPrefix(body, "tenant_id,report_type,range_start,range_end,generated_at") {
		t.Fatalf("unexpected csv header: %q", body[:60])
	}
	if !strings.Contains(body, "containment_pct,70.00") {
		t.Fatalf("csv missing containment row:\n%s", body)
	}
}

func TestReportUsecaseValidation(t *testing.T) {
	uc := newReportTestUsecase(newMemReportRepo(), newStubUploader())

	tests := []struct {
		name       string
		tenant     string
		reportType domain.ReportType
		format     domain.ReportFormat
		start, end time.Time
		wantErr    error
	}{
		{"未知报表类型", "tenant-1", "monthly", domain.ReportFormatJSON, time.Time{}, time.Time{}, domain.ErrInvalidReportType},
		{"未知格式", "tenant-1", domain.ReportTypeDaily, "xlsx", time.Time{}, time.Time{}, domain.ErrInvalidReportFormat},
		{"缺少租户", "", domain.ReportTypeDaily, domain.ReportFormatJSON, time.Time{}, time.Time{}, domain.ErrTenantRequired},
		{"自定义区间缺失", "tenant-1", domain.ReportTypeCustom, domain.ReportFormatJSON, time.Time{}, time.Time{}, domain.ErrInvalidTimeRange},
		{
			"自定义区间颠倒", "tenant-1", domain.ReportTypeCustom, domain.ReportFormatJSON,
			time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC), time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
			domain.ErrInvalidTimeRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := uc.CreateReport(context.Background(), tt.tenant, tt.reportType, tt.format, "r", "ops", tt.start, tt.end)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestReportUsecaseUploadFailureMarksFailed(t *testing.T) {
	repo := newMemReportRepo()
	uploader := newStubUploader()
	uploader.err = errors.New("minio unreachable")
	uc := newReportTestUsecase(repo, uploader)

	report, err := uc.CreateReport(context.Background(), "tenant-1", domain.ReportTypeDaily, domain.ReportFormatJSON, "日报", "ops", time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("CreateReport: %v", err)
	}

	done := waitReportStatus(t, repo, report.ID, domain.ReportStatusFailed)
	if !strings.Contains(done.FailReason, "minio unreachable") {
		t.Fatalf("FailReason = %q", done.FailReason)
	}
}

func TestReportUsecaseDelete(t *testing.T) {
	repo := newMemReportRepo()
	uploader := newStubUploader()
	uc := newReportTestUsecase(repo, uploader)

	report, err := uc.CreateReport(context.Background(), "tenant-1", domain.ReportTypeDaily, domain.ReportFormatJSON, "日报", "ops", time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("CreateReport: %v", err)
	}
	done := waitReportStatus(t, repo, report.ID, domain.ReportStatusCompleted)

	if err := uc.DeleteReport(context.Background(), done.ID); err != nil {
		t.Fatalf("DeleteReport: %v", err)
	}
	if _, err := repo.GetReport(context.Background(), done.ID); !errors.Is(err, domain.ErrReportNotFound) {
		t.Fatalf("err = %v, want ErrReportNotFound", err)
	}
	if len(uploader.deleted) != 1 || uploader.deleted[0] != reportObjectName(done) {
		t.Fatalf("deleted = %v", uploader.deleted)
	}
}

func TestReportUsecaseListClampsLimit(t *testing.T) {
	repo := newMemReportRepo()
	uc := newReportTestUsecase(repo, newStubUploader())

	for i := 0; i < 5; i++ {
		if _, err := uc.CreateReport(context.Background(), "tenant-1", domain.ReportTypeDaily, domain.ReportFormatJSON, "日报", "ops", time.Time{}, time.Time{}); err != nil {
			t.Fatalf("CreateReport: %v", err)
		}
	}

	rows, total, err := uc.ListReports(context.Background(), "tenant-1", 2, 0)
	if err != nil {
		t.Fatalf("ListReports: %v", err)
	}
	if total != 5 || len(rows) != 2 {
		t.Fatalf("total = %d, len = %d", total, len(rows))
	}

	if _, _, err := uc.ListReports(context.Background(), "", 10, 0); !errors.Is(err, domain.ErrTenantRequired) {
		t.Fatalf("err = %v, want ErrTenantRequired", err)
	}
}
