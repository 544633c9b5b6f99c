package notify

import (
	"context"
	"errors"
	"log/slog"
)

// Discard drops every toast.
var Discard Renderer = RendererFunc(func(context.Context, Toast) error { return nil })

// LogRenderer writes toasts as structured log lines.
type LogRenderer struct {
	logger *slog.Logger
}

// NewLogRenderer creates a LogRenderer. A nil logger uses slog.Default.
func NewLogRenderer(logger *slog.Logger) *LogRenderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogRenderer{logger: logger}
}

func (r *LogRenderer) Render(ctx context.Context, t Toast) error {
	level := slog.LevelInfo
	if t.Kind == KindError || t.Kind == KindTerminalFailure {
		level = slog.LevelWarn
	}
	r.logger.Log(ctx, level, "Toast",
		"id", t.ID,
		"kind", t.Kind,
		"operation", t.Operation,
		"title", t.Title,
		"description", t.Description,
		"duration", t.Duration,
	)
	return nil
}

// MultiRenderer fans a toast out to every renderer.
type MultiRenderer []Renderer

func (m MultiRenderer) Render(ctx context.Context, t Toast) error {
	var errs []error
	for _, r := range m {
		if err := r.Render(ctx, t); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
