package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/vietddude/invoker/internal/core/domain"
)

// ReportRepo implements storage.ReportRepository using PostgreSQL.
type ReportRepo struct {
	db *DB
}

// NewReportRepo creates a new PostgreSQL report repository.
func NewReportRepo(db *DB) *ReportRepo {
	return &ReportRepo{db: db}
}

// Report inserts a monitoring report.
func (r *ReportRepo) Report(ctx context.Context, rep domain.Report) error {
	query := `
		INSERT INTO error_reports (code, message, status_code, environment, occurred_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	occurredAt := rep.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, query, rep.Code, rep.Message, rep.StatusCode, rep.Environment, occurredAt)
	if err != nil {
		return fmt.Errorf("failed to insert error report: %w", err)
	}
	return nil
}

// Recent returns up to n reports, newest first.
func (r *ReportRepo) Recent(ctx context.Context, n int) ([]domain.Report, error) {
	query := `
		SELECT code, message, status_code, environment, occurred_at
		FROM error_reports
		ORDER BY occurred_at DESC
		LIMIT $1
	`

	var rows []struct {
		Code        string    `db:"code"`
		Message     string    `db:"message"`
		StatusCode  int       `db:"status_code"`
		Environment string    `db:"environment"`
		OccurredAt  time.Time `db:"occurred_at"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, n); err != nil {
		return nil, fmt.Errorf("failed to query error reports: %w", err)
	}

	reports := make([]domain.Report, 0, len(rows))
	for _, row := range rows {
		reports = append(reports, domain.Report{
			Code:        row.Code,
			Message:     row.Message,
			StatusCode:  row.StatusCode,
			Environment: row.Environment,
			OccurredAt:  row.OccurredAt,
		})
	}
	return reports, nil
}

// Count returns the number of stored reports.
func (r *ReportRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM error_reports`); err != nil {
		return 0, fmt.Errorf("failed to count error reports: %w", err)
	}
	return n, nil
}

// DeleteOlderThan removes reports that occurred before the threshold.
func (r *ReportRepo) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM error_reports WHERE occurred_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to prune error reports: %w", err)
	}
	return res.RowsAffected()
}
