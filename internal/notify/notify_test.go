package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type captureRenderer struct {
	toasts []Toast
	err    error
}

func (c *captureRenderer) Render(_ context.Context, t Toast) error {
	c.toasts = append(c.toasts, t)
	return c.err
}

func TestNotifier_Kinds(t *testing.T) {
	rec := &captureRenderer{}
	n := New(rec, quietLogger)
	ctx := context.Background()

	n.Recovered(ctx, "book-appointment", 3)
	n.Progress(ctx, "book-appointment", 4)
	n.Exhausted(ctx, "book-appointment")
	n.Failure(ctx, "Error", "bad input", &Action{Label: "Retry"})

	if len(rec.toasts) != 4 {
		t.Fatalf("rendered %d toasts, want 4", len(rec.toasts))
	}

	tests := []struct {
		kind     Kind
		duration time.Duration
	}{
		{KindSuccess, 2 * time.Second},
		{KindProgress, 1500 * time.Millisecond},
		{KindTerminalFailure, 4 * time.Second},
		{KindError, 4 * time.Second},
	}
	for i, tt := range tests {
		got := rec.toasts[i]
		if got.Kind != tt.kind || got.Duration != tt.duration {
			t.Errorf("toast %d = %s/%v, want %s/%v", i, got.Kind, got.Duration, tt.kind, tt.duration)
		}
		if got.ID == "" || got.CreatedAt.IsZero() {
			t.Errorf("toast %d missing id or timestamp", i)
		}
		if got.Duration < 1500*time.Millisecond || got.Duration > 4*time.Second {
			t.Errorf("toast %d duration %v out of bounds", i, got.Duration)
		}
	}
	if !strings.Contains(rec.toasts[0].Description, "3 attempts") {
		t.Errorf("recovered description = %q", rec.toasts[0].Description)
	}
	if rec.toasts[3].Action == nil || rec.toasts[3].Action.Label != "Retry" {
		t.Error("failure toast lost its action")
	}
}

func TestNotifier_SwallowsRendererFailures(t *testing.T) {
	failing := &captureRenderer{err: errors.New("surface gone")}
	New(failing, quietLogger).Exhausted(context.Background(), "op")

	panicking := RendererFunc(func(context.Context, Toast) error { panic("boom") })
	New(panicking, quietLogger).Progress(context.Background(), "op", 4)
}

func TestNotifier_NilRenderer(t *testing.T) {
	New(nil, nil).Recovered(context.Background(), "op", 2)
}

func TestMultiRenderer(t *testing.T) {
	a, b := &captureRenderer{}, &captureRenderer{err: errors.New("b failed")}
	err := MultiRenderer{a, b, NewLogRenderer(quietLogger)}.Render(context.Background(), Toast{Kind: KindSuccess})

	if err == nil || !strings.Contains(err.Error(), "b failed") {
		t.Errorf("err = %v, want b failed", err)
	}
	if len(a.toasts) != 1 || len(b.toasts) != 1 {
		t.Error("every renderer should receive the toast")
	}
}
