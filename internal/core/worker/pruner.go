package worker

import (
	"context"
	"log/slog"
	"time"
)

// ReportStore is a report repository that can drop old rows.
type ReportStore interface {
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
}

// Pruner deletes monitoring reports based on a retention period.
type Pruner struct {
	retention time.Duration
	store     ReportStore
	log       *slog.Logger
	now       func() time.Time
}

// NewPruner creates a new Pruner worker.
func NewPruner(retention time.Duration, store ReportStore, logger *slog.Logger) *Pruner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pruner{
		retention: retention,
		store:     store,
		log:       logger.With("component", "pruner"),
		now:       time.Now,
	}
}

// Interval is how often the pruner runs: 10% of retention, between one
// minute and one hour.
func (p *Pruner) Interval() time.Duration {
	interval := min(p.retention/10, 1*time.Hour)
	return max(interval, 1*time.Minute)
}

// Start runs the pruner loop until ctx is done.
func (p *Pruner) Start(ctx context.Context) {
	if p.retention <= 0 {
		return // Retention disabled
	}

	ticker := time.NewTicker(p.Interval())
	defer ticker.Stop()

	// Initial prune
	p.Prune(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Prune(ctx)
		}
	}
}

// Prune removes reports older than the retention period once.
func (p *Pruner) Prune(ctx context.Context) {
	threshold := p.now().Add(-p.retention)

	n, err := p.store.DeleteOlderThan(ctx, threshold)
	if err != nil {
		p.log.Error("Failed to prune reports", "before", threshold, "error", err)
		return
	}
	if n > 0 {
		p.log.Debug("Pruned reports", "count", n, "before", threshold)
	}
}
