package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/vietddude/invoker/internal/core/domain"
	"github.com/vietddude/invoker/internal/infra/storage"
	"github.com/vietddude/invoker/internal/monitoring"
)

var (
	_ storage.ReportRepository = (*ReportRepo)(nil)
	_ monitoring.Sink          = (*ReportRepo)(nil)
)

func TestReportRepo(t *testing.T) {
	ctx := context.Background()
	repo := NewReportRepo(3)
	for i := 0; i < 5; i++ {
		_ = repo.Report(ctx, domain.Report{Code: fmt.Sprintf("E%d", i)})
	}

	n, _ := repo.Count(ctx)
	if n != 3 {
		t.Errorf("Count = %d, want 3", n)
	}
	recent, _ := repo.Recent(ctx, 2)
	if len(recent) != 2 || recent[0].Code != "E4" || recent[1].Code != "E3" {
		t.Errorf("Recent = %+v", recent)
	}
	all, _ := repo.Recent(ctx, 10)
	if len(all) != 3 {
		t.Errorf("Recent(10) len = %d", len(all))
	}
}

func TestReportRepo_DeleteOlderThan(t *testing.T) {
	ctx := context.Background()
	repo := NewReportRepo(10)
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		_ = repo.Report(ctx, domain.Report{Code: fmt.Sprintf("E%d", i), OccurredAt: base.Add(time.Duration(i) * time.Hour)})
	}

	n, err := repo.DeleteOlderThan(ctx, base.Add(2*time.Hour))
	if err != nil || n != 2 {
		t.Fatalf("DeleteOlderThan = %d, %v; want 2", n, err)
	}
	recent, _ := repo.Recent(ctx, 10)
	if len(recent) != 2 || recent[0].Code != "E3" || recent[1].Code != "E2" {
		t.Errorf("remaining = %+v", recent)
	}
}
