package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vietddude/invoker/internal/core/domain"
)

const (
	DefaultReportKey  = "invoker:monitoring:reports"
	DefaultMaxReports = 1000
)

// ReportSink keeps the newest monitoring reports in a capped list.
type ReportSink struct {
	client     *Client
	key        string
	maxReports int64
}

// NewReportSink creates a sink. Zero values fall back to the defaults.
func NewReportSink(client *Client, key string, maxReports int) *ReportSink {
	if key == "" {
		key = DefaultReportKey
	}
	if maxReports <= 0 {
		maxReports = DefaultMaxReports
	}
	return &ReportSink{client: client, key: key, maxReports: int64(maxReports)}
}

// Report implements monitoring.Sink.
func (s *ReportSink) Report(ctx context.Context, r domain.Report) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	pipe := s.client.rdb.TxPipeline()
	pipe.LPush(ctx, s.key, data)
	pipe.LTrim(ctx, s.key, 0, s.maxReports-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to push report: %w", err)
	}
	return nil
}

// Recent returns up to n reports, newest first.
func (s *ReportSink) Recent(ctx context.Context, n int) ([]domain.Report, error) {
	if n <= 0 {
		return nil, nil
	}
	items, err := s.client.rdb.LRange(ctx, s.key, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("lrange failed: %w", err)
	}

	reports := make([]domain.Report, 0, len(items))
	for _, item := range items {
		var r domain.Report
		if err := json.Unmarshal([]byte(item), &r); err != nil {
			continue
		}
		reports = append(reports, r)
	}
	return reports, nil
}

// Count returns the number of stored reports.
func (s *ReportSink) Count(ctx context.Context) (int, error) {
	n, err := s.client.rdb.LLen(ctx, s.key).Result()
	if err != nil {
		return 0, fmt.Errorf("llen failed: %w", err)
	}
	return int(n), nil
}
