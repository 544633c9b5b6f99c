// Package handler normalizes, logs and surfaces errors raised outside the
// retry path.
package handler

import (
	"context"
	"log/slog"
	"time"

	"github.com/vietddude/invoker/internal/core/domain"
	"github.com/vietddude/invoker/internal/metrics"
	"github.com/vietddude/invoker/internal/monitoring"
	"github.com/vietddude/invoker/internal/notify"
	"github.com/vietddude/invoker/internal/resilience/normalize"
)

const (
	defaultTitle         = "Error"
	inProgressMessage    = "Operation in progress (auto-retry)"
	defaultReportTimeout = 3 * time.Second
)

// Result is the normalized outcome returned to callers.
type Result struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Classifier detects false-positive limit errors.
type Classifier interface {
	Classify(ctx context.Context, raw any) bool
}

// Notifier renders failure toasts. *notify.Notifier implements it.
type Notifier interface {
	Failure(ctx context.Context, title, description string, action *notify.Action)
}

// Options customize the failure toast.
type Options struct {
	Title       string
	Description string
	Action      *notify.Action
}

// Option sets a field of Options.
type Option func(*Options)

func WithTitle(title string) Option {
	return func(o *Options) { o.Title = title }
}

func WithDescription(description string) Option {
	return func(o *Options) { o.Description = description }
}

func WithAction(action notify.Action) Option {
	return func(o *Options) { o.Action = &action }
}

// Config wires a Handler.
type Config struct {
	Classifier    Classifier
	Notifier      Notifier
	Sink          monitoring.Sink
	Environment   domain.Environment
	Logger        *slog.Logger
	ReportTimeout time.Duration
}

// Handler is the generic error pipeline. It never panics and never returns
// an error.
type Handler struct {
	classifier    Classifier
	notifier      Notifier
	sink          monitoring.Sink
	env           domain.Environment
	logger        *slog.Logger
	reportTimeout time.Duration
	now           func() time.Time
}

// New creates a Handler from cfg, filling unset collaborators with no-ops.
func New(cfg Config) *Handler {
	h := &Handler{
		classifier:    cfg.Classifier,
		notifier:      cfg.Notifier,
		sink:          cfg.Sink,
		env:           cfg.Environment,
		logger:        cfg.Logger,
		reportTimeout: cfg.ReportTimeout,
		now:           time.Now,
	}
	if h.notifier == nil {
		h.notifier = notify.New(nil, nil)
	}
	if h.sink == nil {
		h.sink = monitoring.Discard
	}
	if h.env == "" {
		h.env = domain.EnvDevelopment
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	if h.reportTimeout <= 0 {
		h.reportTimeout = defaultReportTimeout
	}
	return h
}

// Handle normalizes raw and surfaces it. Classified false positives return a
// sentinel result without a failure toast because the retry path notifies
// on its own.
//
// Errors already coded FALSE_POSITIVE_LIMIT, such as the corrected error of
// an exhausted retry, take the same path.
func (h *Handler) Handle(ctx context.Context, raw any, opts ...Option) Result {
	if ctx == nil {
		ctx = context.Background()
	}
	if h.classifier != nil && h.classifier.Classify(ctx, raw) {
		return h.suppress(normalize.Message(raw))
	}

	n := normalize.Normalize(raw)
	if n.Code == domain.CodeFalsePositiveLimit {
		return h.suppress(n.Message)
	}
	h.logger.Error("Error handled",
		"message", n.Message,
		"code", n.Code,
		"status_code", n.StatusCode,
	)

	o := Options{Title: defaultTitle, Description: n.Message}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Title == "" {
		o.Title = defaultTitle
	}
	if o.Description == "" {
		o.Description = n.Message
	}
	h.notifier.Failure(ctx, o.Title, o.Description, o.Action)

	kind := "uncoded"
	if n.HasCode() {
		kind = "coded"
		h.report(ctx, n)
	}
	metrics.HandledErrorsTotal.WithLabelValues(kind).Inc()

	return Result{Message: n.Message, Code: n.Code}
}

func (h *Handler) suppress(msg string) Result {
	metrics.HandledErrorsTotal.WithLabelValues("false_positive").Inc()
	h.logger.Info("Suppressed false positive limit error", "message", msg)
	return Result{Message: inProgressMessage, Code: domain.CodeFalsePositiveLimit}
}

// Message returns only the normalized message of raw.
func (h *Handler) Message(raw any) string {
	return normalize.Message(raw)
}

func (h *Handler) report(ctx context.Context, n domain.NormalizedError) {
	if !h.env.IsProduction() {
		metrics.MonitoringReportsTotal.WithLabelValues("skipped").Inc()
		return
	}

	defer func() {
		if r := recover(); r != nil {
			metrics.MonitoringReportsTotal.WithLabelValues("error").Inc()
			h.logger.Warn("Monitoring sink panicked", "panic", r)
		}
	}()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.reportTimeout)
	defer cancel()

	err := h.sink.Report(ctx, domain.Report{
		Message:     n.Message,
		Code:        n.Code,
		StatusCode:  n.StatusCode,
		Environment: string(h.env),
		OccurredAt:  h.now().UTC(),
	})
	if err != nil {
		metrics.MonitoringReportsTotal.WithLabelValues("error").Inc()
		h.logger.Warn("Failed to forward error to monitoring", "code", n.Code, "error", err)
		return
	}
	metrics.MonitoringReportsTotal.WithLabelValues("sent").Inc()
}

// Capture runs fn and returns its value or its original error. On failure
// the error is also passed through Handle.
func Capture[T any](ctx context.Context, h *Handler, fn func(ctx context.Context) (T, error), opts ...Option) (T, error) {
	v, err := fn(ctx)
	if err != nil {
		h.Handle(ctx, err, opts...)
		var zero T
		return zero, err
	}
	return v, nil
}
