// Package invoke wraps remote operations with classification, bounded
// exponential backoff and outcome notifications.
package invoke

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vietddude/invoker/internal/metrics"
	"github.com/vietddude/invoker/internal/resilience/backoff"
	"github.com/vietddude/invoker/internal/resilience/classify"
)

// progressFromAttempt is the failed attempt after which each retry shows an
// auto-correcting notice.
const progressFromAttempt = 3

const tracerName = "github.com/vietddude/invoker/internal/resilience/invoke"

// Classifier decides whether an error is a retryable false positive.
// *classify.Classifier implements it.
type Classifier interface {
	Classify(ctx context.Context, raw any) bool
}

// Notifier receives invocation outcomes. *notify.Notifier implements it.
type Notifier interface {
	Recovered(ctx context.Context, operation string, attempts int)
	Progress(ctx context.Context, operation string, attempt int)
	Exhausted(ctx context.Context, operation string)
}

type nopNotifier struct{}

func (nopNotifier) Recovered(context.Context, string, int) {}
func (nopNotifier) Progress(context.Context, string, int)  {}
func (nopNotifier) Exhausted(context.Context, string)      {}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Invoker runs operations under a retry policy. Distinct invocations share
// nothing but the classifier and notifier; they are not coalesced.
type Invoker struct {
	policy         backoff.Policy
	classifier     Classifier
	notifier       Notifier
	logger         *slog.Logger
	attemptTimeout time.Duration
	sleep          Sleeper
	tracer         trace.Tracer
}

// Option configures an Invoker.
type Option func(*Invoker)

// WithLogger sets the invoker logger.
func WithLogger(l *slog.Logger) Option {
	return func(inv *Invoker) {
		if l != nil {
			inv.logger = l
		}
	}
}

// WithAttemptTimeout bounds each single execution of the operation. Zero
// disables the bound.
func WithAttemptTimeout(d time.Duration) Option {
	return func(inv *Invoker) {
		inv.attemptTimeout = d
	}
}

// WithSleeper replaces the backoff wait, mainly for tests.
func WithSleeper(s Sleeper) Option {
	return func(inv *Invoker) {
		if s != nil {
			inv.sleep = s
		}
	}
}

// WithTracerProvider sets where invocation spans go. The default is the
// global otel provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(inv *Invoker) {
		if tp != nil {
			inv.tracer = tp.Tracer(tracerName)
		}
	}
}

// New creates an Invoker. A nil notifier disables notifications.
func New(policy backoff.Policy, classifier Classifier, notifier Notifier, opts ...Option) *Invoker {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	inv := &Invoker{
		policy:     policy,
		classifier: classifier,
		notifier:   notifier,
		logger:     slog.Default(),
		sleep:      sleepContext,
		tracer:     otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(inv)
	}
	return inv
}

// Policy returns the retry policy.
func (inv *Invoker) Policy() backoff.Policy {
	return inv.policy
}

// Do runs an operation that returns no value.
func (inv *Invoker) Do(ctx context.Context, name string, op func(ctx context.Context) error) error {
	_, err := Invoke(ctx, inv, name, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// Invoke executes op at most MaxAttempts times. Only classified errors are
// retried. On failure the original error is returned unchanged; a
// cancellation during the loop is joined with the last error.
func Invoke[T any](ctx context.Context, inv *Invoker, name string, op func(ctx context.Context) (T, error)) (T, error) {
	v, _, err := run(ctx, inv, name, op, inv.notifier)
	return v, err
}

type outcome struct {
	attempts   int
	classified bool
	cancelled  bool
}

func run[T any](
	ctx context.Context,
	inv *Invoker,
	name string,
	op func(ctx context.Context) (T, error),
	notifier Notifier,
) (T, outcome, error) {
	invocationID := uuid.NewString()
	ctx, span := inv.tracer.Start(ctx, "invoke "+name, trace.WithAttributes(
		attribute.String("invoker.operation", name),
		attribute.String("invoker.invocation_id", invocationID),
	))
	defer span.End()

	v, out, err := loop(ctx, inv, name, op, notifier, inv.logger.With("operation", name, "invocation_id", invocationID))

	span.SetAttributes(
		attribute.Int("invoker.attempts", out.attempts),
		attribute.Bool("invoker.classified", out.classified),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
	} else {
		span.SetStatus(otelcodes.Ok, "")
	}
	return v, out, err
}

func loop[T any](
	ctx context.Context,
	inv *Invoker,
	name string,
	op func(ctx context.Context) (T, error),
	notifier Notifier,
	logger *slog.Logger,
) (T, outcome, error) {
	var zero T
	var lastErr error
	maxAttempts := inv.policy.MaxAttempts()
	span := trace.SpanFromContext(ctx)

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			metrics.OutcomesTotal.WithLabelValues(name, metrics.OutcomeCancelled).Inc()
			return zero, outcome{attempts: attempt - 1, classified: lastErr != nil, cancelled: true}, errors.Join(lastErr, err)
		}

		metrics.AttemptsTotal.WithLabelValues(name).Inc()
		v, err := execute(ctx, inv.attemptTimeout, op)
		if err == nil {
			if attempt > 1 {
				notifier.Recovered(ctx, name, attempt)
				logger.Info("Operation recovered after retry", "attempts", attempt)
				metrics.OutcomesTotal.WithLabelValues(name, metrics.OutcomeRecovered).Inc()
			} else {
				metrics.OutcomesTotal.WithLabelValues(name, metrics.OutcomeSuccess).Inc()
			}
			return v, outcome{attempts: attempt}, nil
		}
		lastErr = err

		if !inv.classifier.Classify(classify.ContextWithOperation(ctx, name), err) {
			logger.Debug("Operation failed", "attempt", attempt, "error", err)
			metrics.OutcomesTotal.WithLabelValues(name, metrics.OutcomeFailed).Inc()
			return zero, outcome{attempts: attempt}, err
		}

		if attempt >= maxAttempts {
			notifier.Exhausted(ctx, name)
			logger.Warn("Retry budget exhausted for false positive limit error",
				"attempts", attempt,
				"error", err,
			)
			metrics.OutcomesTotal.WithLabelValues(name, metrics.OutcomeExhausted).Inc()
			return zero, outcome{attempts: attempt, classified: true}, err
		}

		delay := inv.policy.DelayFor(attempt) + inv.policy.Jitter()
		if attempt >= progressFromAttempt {
			notifier.Progress(ctx, name, attempt+1)
		}
		logger.Info("Retrying after false positive limit error",
			"attempt", attempt,
			"max_attempts", maxAttempts,
			"delay", delay,
		)
		metrics.BackoffSeconds.WithLabelValues(name).Observe(delay.Seconds())
		span.AddEvent("retry", trace.WithAttributes(
			attribute.Int("invoker.attempt", attempt),
			attribute.Int64("invoker.delay_ms", delay.Milliseconds()),
		))

		if err := inv.sleep(ctx, delay); err != nil {
			logger.Warn("Backoff interrupted", "attempt", attempt, "error", err)
			metrics.OutcomesTotal.WithLabelValues(name, metrics.OutcomeCancelled).Inc()
			return zero, outcome{attempts: attempt, classified: true, cancelled: true}, errors.Join(lastErr, err)
		}
	}
}

func execute[T any](ctx context.Context, timeout time.Duration, op func(ctx context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return op(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return op(attemptCtx)
}
