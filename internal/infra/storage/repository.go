package storage

import (
	"context"

	"github.com/vietddude/invoker/internal/core/domain"
)

// ReportRepository stores monitoring reports. Every implementation also
// satisfies monitoring.Sink.
type ReportRepository interface {
	// Report stores a single report
	Report(ctx context.Context, r domain.Report) error

	// Recent returns up to n reports, newest first
	Recent(ctx context.Context, n int) ([]domain.Report, error)

	// Count returns the number of stored reports
	Count(ctx context.Context) (int, error)
}
