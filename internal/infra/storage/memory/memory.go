package memory

import (
	"context"
	"sync"
	"time"

	"github.com/vietddude/invoker/internal/core/domain"
)

// ReportRepo keeps the newest reports in process memory.
type ReportRepo struct {
	mu       sync.RWMutex
	reports  []domain.Report
	capacity int
}

// NewReportRepo creates a repo retaining at most capacity reports.
func NewReportRepo(capacity int) *ReportRepo {
	if capacity <= 0 {
		capacity = 1000
	}
	return &ReportRepo{capacity: capacity}
}

func (r *ReportRepo) Report(ctx context.Context, rep domain.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, rep)
	if over := len(r.reports) - r.capacity; over > 0 {
		r.reports = r.reports[over:]
	}
	return nil
}

func (r *ReportRepo) Recent(ctx context.Context, n int) ([]domain.Report, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if n > len(r.reports) {
		n = len(r.reports)
	}
	out := make([]domain.Report, 0, n)
	for i := len(r.reports) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, r.reports[i])
	}
	return out, nil
}

func (r *ReportRepo) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.reports), nil
}

// DeleteOlderThan drops reports that occurred before the threshold.
func (r *ReportRepo) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.reports[:0]
	for _, rep := range r.reports {
		if !rep.OccurredAt.Before(before) {
			kept = append(kept, rep)
		}
	}
	n := int64(len(r.reports) - len(kept))
	r.reports = kept
	return n, nil
}
