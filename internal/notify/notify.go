// Package notify renders transient user-facing toasts for invocation outcomes.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/invoker/internal/metrics"
)

// Kind classifies a toast.
type Kind string

const (
	KindSuccess         Kind = "success"
	KindProgress        Kind = "progress"
	KindTerminalFailure Kind = "terminal-failure"
	KindError           Kind = "error"
)

// Duration returns how long a toast of this kind stays on screen.
func (k Kind) Duration() time.Duration {
	switch k {
	case KindSuccess:
		return 2 * time.Second
	case KindProgress:
		return 1500 * time.Millisecond
	default:
		return 4 * time.Second
	}
}

// Action is an optional button attached to a toast.
type Action struct {
	Label string `json:"label"`
	Href  string `json:"href,omitempty"`
}

// Toast is a single user-visible notification.
type Toast struct {
	ID          string        `json:"id"`
	Kind        Kind          `json:"kind"`
	Operation   string        `json:"operation,omitempty"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Action      *Action       `json:"action,omitempty"`
	Duration    time.Duration `json:"duration"`
	CreatedAt   time.Time     `json:"created_at"`
}

// Renderer displays toasts on some surface.
type Renderer interface {
	Render(ctx context.Context, t Toast) error
}

// RendererFunc adapts a function into a Renderer.
type RendererFunc func(ctx context.Context, t Toast) error

func (f RendererFunc) Render(ctx context.Context, t Toast) error { return f(ctx, t) }

// Notifier maps invocation outcomes to toasts. It never fails: renderer
// errors and panics are logged and dropped.
type Notifier struct {
	renderer Renderer
	logger   *slog.Logger
	now      func() time.Time
}

// New creates a Notifier. A nil renderer discards toasts.
func New(renderer Renderer, logger *slog.Logger) *Notifier {
	if renderer == nil {
		renderer = Discard
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{renderer: renderer, logger: logger, now: time.Now}
}

// Recovered reports an operation that succeeded after retrying.
func (n *Notifier) Recovered(ctx context.Context, operation string, attempts int) {
	n.emit(ctx, Toast{
		Kind:        KindSuccess,
		Operation:   operation,
		Title:       "Connection restored",
		Description: fmt.Sprintf("Request completed after %d attempts.", attempts),
	})
}

// Progress reports that automatic correction is under way.
func (n *Notifier) Progress(ctx context.Context, operation string, attempt int) {
	n.emit(ctx, Toast{
		Kind:        KindProgress,
		Operation:   operation,
		Title:       "Auto-correcting",
		Description: fmt.Sprintf("Temporary backend hiccup detected, retrying (attempt %d)...", attempt),
	})
}

// Exhausted reports a transient failure that did not clear within the
// retry budget.
func (n *Notifier) Exhausted(ctx context.Context, operation string) {
	n.emit(ctx, Toast{
		Kind:        KindTerminalFailure,
		Operation:   operation,
		Title:       "Temporary issue",
		Description: "Sorry, the service is briefly unavailable. Please try again in a moment.",
	})
}

// Failure renders a generic error toast.
func (n *Notifier) Failure(ctx context.Context, title, description string, action *Action) {
	n.emit(ctx, Toast{
		Kind:        KindError,
		Title:       title,
		Description: description,
		Action:      action,
	})
}

func (n *Notifier) emit(ctx context.Context, t Toast) {
	t.ID = uuid.NewString()
	t.Duration = t.Kind.Duration()
	t.CreatedAt = n.now()

	defer func() {
		if r := recover(); r != nil {
			metrics.NotificationsTotal.WithLabelValues(string(t.Kind), "error").Inc()
			n.logger.Warn("Toast renderer panicked", "kind", t.Kind, "panic", r)
		}
	}()

	if err := n.renderer.Render(ctx, t); err != nil {
		metrics.NotificationsTotal.WithLabelValues(string(t.Kind), "error").Inc()
		n.logger.Debug("Failed to render toast", "kind", t.Kind, "error", err)
		return
	}
	metrics.NotificationsTotal.WithLabelValues(string(t.Kind), "ok").Inc()
}
