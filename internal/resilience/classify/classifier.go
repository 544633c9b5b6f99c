// Package classify decides whether an error is a transient, spuriously
// reported limit failure that is safe to retry.
package classify

import (
	"context"
	"log/slog"
	"time"

	"github.com/vietddude/invoker/internal/core/domain"
	"github.com/vietddude/invoker/internal/metrics"
	"github.com/vietddude/invoker/internal/resilience/normalize"
)

// Recorder receives classified errors. diagnostics.Store implements it.
type Recorder interface {
	Record(entry domain.ClassifiedError)
}

// Classifier matches errors against a rule list.
type Classifier struct {
	rules    []Rule
	recorder Recorder
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithRules replaces the rule list.
func WithRules(rules ...Rule) Option {
	return func(c *Classifier) {
		c.rules = append([]Rule(nil), rules...)
	}
}

// WithExtraRules appends rules to the current list.
func WithExtraRules(rules ...Rule) Option {
	return func(c *Classifier) {
		c.rules = append(c.rules, rules...)
	}
}

// WithLogger sets the logger used for detection lines.
func WithLogger(l *slog.Logger) Option {
	return func(c *Classifier) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(c *Classifier) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates a Classifier using DefaultRules unless overridden. recorder may
// be nil.
func New(recorder Recorder, opts ...Option) *Classifier {
	c := &Classifier{
		rules:    DefaultRules(),
		recorder: recorder,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Match returns the first rule matching raw. It has no side effects.
func (c *Classifier) Match(raw any) (Rule, bool) {
	n := normalize.Normalize(raw)
	for _, r := range c.rules {
		if r.Match(n) {
			return r, true
		}
	}
	return nil, false
}

type operationKey struct{}

// ContextWithOperation tags ctx with the logical operation name reported in
// detection log lines and diagnostics entries.
func ContextWithOperation(ctx context.Context, operation string) context.Context {
	return context.WithValue(ctx, operationKey{}, operation)
}

// OperationFromContext returns the operation set by ContextWithOperation.
func OperationFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	op, _ := ctx.Value(operationKey{}).(string)
	return op
}

// IsTransientFalsePositive reports whether raw matches a known signature.
// A match is recorded to the diagnostics log and logged.
func (c *Classifier) IsTransientFalsePositive(raw any) bool {
	return c.Classify(context.Background(), raw)
}

// Classify is IsTransientFalsePositive with the operation name taken from
// ctx.
func (c *Classifier) Classify(ctx context.Context, raw any) bool {
	rule, ok := c.Match(raw)
	if !ok {
		return false
	}
	if ctx == nil {
		ctx = context.Background()
	}

	msg := normalize.Message(raw)
	op := OperationFromContext(ctx)
	if c.recorder != nil {
		c.recorder.Record(domain.ClassifiedError{
			Message:   msg,
			Rule:      rule.Name(),
			Operation: op,
			Timestamp: c.now(),
		})
	}
	metrics.FalsePositivesTotal.WithLabelValues(rule.Name()).Inc()
	c.logger.WarnContext(ctx, "False positive limit error detected",
		"event", "false_positive_detected",
		"operation", op,
		"rule", rule.Name(),
		"message", msg,
	)
	return true
}

// RuleNames lists the configured rules in evaluation order.
func (c *Classifier) RuleNames() []string {
	names := make([]string, len(c.rules))
	for i, r := range c.rules {
		names[i] = r.Name()
	}
	return names
}
