// Package monitoring forwards coded application errors to an external sink.
package monitoring

import (
	"context"
	"log/slog"

	"github.com/vietddude/invoker/internal/core/domain"
)

// Sink receives error reports.
type Sink interface {
	Report(ctx context.Context, r domain.Report) error
}

// SinkFunc adapts a function into a Sink.
type SinkFunc func(ctx context.Context, r domain.Report) error

func (f SinkFunc) Report(ctx context.Context, r domain.Report) error { return f(ctx, r) }

// Discard drops every report.
var Discard Sink = SinkFunc(func(context.Context, domain.Report) error { return nil })

// LogSink writes reports to a logger.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a LogSink. A nil logger uses slog.Default.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Report(ctx context.Context, r domain.Report) error {
	s.logger.ErrorContext(ctx, "Monitoring report",
		"code", r.Code,
		"message", r.Message,
		"status_code", r.StatusCode,
		"environment", r.Environment,
		"occurred_at", r.OccurredAt,
	)
	return nil
}
