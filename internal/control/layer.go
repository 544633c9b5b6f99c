// Package control assembles the invocation layer from configuration.
package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vietddude/invoker/internal/core/config"
	"github.com/vietddude/invoker/internal/core/domain"
	"github.com/vietddude/invoker/internal/core/worker"
	"github.com/vietddude/invoker/internal/handler"
	redisclient "github.com/vietddude/invoker/internal/infra/redis"
	"github.com/vietddude/invoker/internal/infra/storage"
	"github.com/vietddude/invoker/internal/infra/storage/memory"
	"github.com/vietddude/invoker/internal/infra/storage/postgres"
	"github.com/vietddude/invoker/internal/monitoring"
	"github.com/vietddude/invoker/internal/notify"
	"github.com/vietddude/invoker/internal/resilience/backoff"
	"github.com/vietddude/invoker/internal/resilience/classify"
	"github.com/vietddude/invoker/internal/resilience/diagnostics"
	"github.com/vietddude/invoker/internal/resilience/invoke"

	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

// Layer owns every component of the invocation layer. Build it once and
// pass it to call sites.
type Layer struct {
	Policy     backoff.Policy
	Store      *diagnostics.Store
	Classifier *classify.Classifier
	Notifier   *notify.Notifier
	Invoker    *invoke.Invoker
	Handler    *handler.Handler
	// Reports is nil when the sink cannot be read back (log, none).
	Reports storage.ReportRepository

	server      *diagnostics.Server
	pruner      *worker.Pruner
	stopPruner  context.CancelFunc
	prunerDone  chan struct{}
	redisClient *redisclient.Client
	db          *postgres.DB
	log         *slog.Logger
}

// New creates a Layer with all dependencies initialized.
func New(ctx context.Context, cfg *config.AppConfig) (*Layer, error) {
	log := slog.Default()

	// 1. Policy and diagnostics
	policy, err := backoff.NewPolicy(cfg.Retry.Backoff())
	if err != nil {
		return nil, fmt.Errorf("retry: %w", err)
	}
	store := diagnostics.NewStore(policy,
		diagnostics.WithCapacity(cfg.Diagnostics.Capacity),
		diagnostics.WithRecentLimit(cfg.Diagnostics.Recent),
	)

	// 2. Classifier rules
	rules, err := Rules(cfg.Classifier)
	if err != nil {
		return nil, err
	}
	classifier := classify.New(store, classify.WithRules(rules...), classify.WithLogger(log))

	l := &Layer{
		Policy:     policy,
		Store:      store,
		Classifier: classifier,
		log:        log,
	}

	// 3. Shared connections, only when a component needs them
	if cfg.Notify.Renderer == "redis" || cfg.Monitoring.Sink == "redis" {
		l.redisClient, err = redisclient.NewClient(cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to init redis: %w", err)
		}
	}
	if cfg.Monitoring.Sink == "postgres" {
		l.db, err = postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			l.closeConns()
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		if err := l.db.Migrate(ctx); err != nil {
			l.closeConns()
			return nil, err
		}
	}

	// 4. Notifications
	var renderer notify.Renderer
	switch cfg.Notify.Renderer {
	case "redis":
		renderer = notify.MultiRenderer{
			notify.NewLogRenderer(log),
			redisclient.NewToastPublisher(l.redisClient, cfg.Notify.Channel),
		}
	case "none":
		renderer = notify.Discard
	default:
		renderer = notify.NewLogRenderer(log)
	}
	l.Notifier = notify.New(renderer, log)

	// 5. Monitoring sink
	var sink monitoring.Sink
	switch cfg.Monitoring.Sink {
	case "memory":
		repo := memory.NewReportRepo(cfg.Monitoring.MaxReports)
		l.Reports, sink = repo, repo
	case "redis":
		repo := redisclient.NewReportSink(l.redisClient, cfg.Monitoring.ListKey, cfg.Monitoring.MaxReports)
		l.Reports, sink = repo, repo
	case "postgres":
		repo := postgres.NewReportRepo(l.db)
		l.Reports, sink = repo, repo
	case "none":
		sink = monitoring.Discard
	default:
		sink = monitoring.NewLogSink(log)
	}

	// 6. Retry driver and generic handler
	l.Invoker = invoke.New(policy, classifier, l.Notifier,
		invoke.WithLogger(log),
		invoke.WithAttemptTimeout(cfg.Retry.AttemptTimeout),
	)
	l.Handler = handler.New(handler.Config{
		Classifier:  classifier,
		Notifier:    l.Notifier,
		Sink:        sink,
		Environment: domain.ParseEnvironment(cfg.Environment),
		Logger:      log,
	})

	if ps, ok := l.Reports.(worker.ReportStore); ok && cfg.Monitoring.Retention > 0 {
		l.pruner = worker.NewPruner(cfg.Monitoring.Retention, ps, log)
	}

	l.server = diagnostics.NewServer(store, cfg.Server.Port)

	log.Info("Invocation layer ready",
		"environment", cfg.Environment,
		"rules", len(rules),
		"renderer", cfg.Notify.Renderer,
		"sink", cfg.Monitoring.Sink,
	)
	return l, nil
}

// Rules builds the classifier rule list from configuration.
func Rules(cfg config.ClassifierConfig) ([]classify.Rule, error) {
	var rules []classify.Rule
	if !cfg.DisableDefaults {
		rules = classify.DefaultRules()
	}
	for _, p := range cfg.Patterns {
		r, err := classify.NewPatternRule(p.Name, p.Pattern)
		if err != nil {
			return nil, fmt.Errorf("classifier: %w", err)
		}
		rules = append(rules, r)
	}
	if len(cfg.Codes) > 0 {
		rules = append(rules, classify.NewCodeRule("configured-code", cfg.Codes...))
	}
	if len(rules) == 0 {
		return nil, errors.New("classifier: no rules configured")
	}
	return rules, nil
}

// Server returns the diagnostics HTTP server.
func (l *Layer) Server() *diagnostics.Server {
	return l.server
}

// Health checks the backing connections.
func (l *Layer) Health(ctx context.Context) error {
	var errs []error
	if l.redisClient != nil {
		if err := l.redisClient.Health(ctx); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}
	if l.db != nil {
		if err := l.db.Health(ctx); err != nil {
			errs = append(errs, fmt.Errorf("postgres: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Run starts the layer and blocks until ctx is done or the server fails,
// then shuts down.
func (l *Layer) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(l.server.Start)
	if l.pruner != nil {
		g.Go(func() error {
			l.pruner.Start(gctx)
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return l.Stop(shutdownCtx)
	})

	l.log.Info("Diagnostics server listening", "addr", l.server.Addr())
	return g.Wait()
}

// Start starts the diagnostics server and the pruner in the background.
func (l *Layer) Start(ctx context.Context) error {
	if l.pruner != nil {
		pctx, cancel := context.WithCancel(ctx)
		l.stopPruner = cancel
		l.prunerDone = make(chan struct{})
		go func() {
			defer close(l.prunerDone)
			l.pruner.Start(pctx)
		}()
	}
	go func() {
		if err := l.server.Start(); err != nil {
			l.log.Error("Diagnostics server failed", "error", err)
		}
	}()
	l.log.Info("Diagnostics server listening", "addr", l.server.Addr())
	return nil
}

// Stop shuts the server down, stops a pruner started by Start and closes
// connections.
func (l *Layer) Stop(ctx context.Context) error {
	l.log.Info("Stopping invocation layer...")
	err := l.server.Stop(ctx)
	if l.stopPruner != nil {
		l.stopPruner()
		select {
		case <-l.prunerDone:
		case <-ctx.Done():
		}
	}
	l.closeConns()
	return err
}

func (l *Layer) closeConns() {
	if l.redisClient != nil {
		if err := l.redisClient.Close(); err != nil {
			l.log.Warn("Failed to close Redis", "error", err)
		}
	}
	if l.db != nil {
		if err := l.db.Close(); err != nil {
			l.log.Warn("Failed to close database", "error", err)
		}
	}
}
