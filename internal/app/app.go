package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/newthinker/quantview/internal/client"
	"github.com/newthinker/quantview/internal/config"
	"github.com/newthinker/quantview/internal/export"
	"github.com/newthinker/quantview/internal/metrics"
	"github.com/newthinker/quantview/internal/session"
	"go.uber.org/zap"
)

const defaultSweepInterval = 5 * time.Minute

// App wires the backtest client, session store and exporter together and
// owns the lifetime of background backtests.
type App struct {
	cfg      *config.Config
	logger   *zap.Logger
	metrics  *metrics.Registry
	client   *client.Client
	exporter *export.Exporter
	sessions *session.Store

	// runCtx outlives individual HTTP requests; backtests started from a
	// request keep running after the response is written.
	runCtx    context.Context
	runCancel context.CancelFunc

	sweepInterval time.Duration

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
}

// New creates a new App instance
func New(cfg *config.Config, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg == nil {
		cfg = config.Defaults()
	}

	reg := metrics.NewRegistry()
	c := client.New(cfg.Backtest.BaseURL, cfg.Backtest.Timeout,
		client.WithLogger(logger.Named("client")),
		client.WithRecorder(reg),
	)

	exportOpts := []export.Option{
		export.WithScale(cfg.Export.Scale),
		export.WithLogger(logger.Named("export")),
	}
	if cfg.Export.AllowRemote {
		exportOpts = append(exportOpts, export.WithRemoteImages(c.HTTPClient()))
	}

	runCtx, runCancel := context.WithCancel(context.Background())

	a := &App{
		cfg:           cfg,
		logger:        logger,
		metrics:       reg,
		client:        c,
		exporter:      export.New(exportOpts...),
		runCtx:        runCtx,
		runCancel:     runCancel,
		sweepInterval: defaultSweepInterval,
	}
	a.sessions = session.NewStore(cfg.Session.MaxSessions, cfg.Session.TTL, a.newCoordinator)
	a.sessions.SetRecorder(reg)
	return a
}

func (a *App) newCoordinator() *session.Coordinator {
	return session.New(a.client,
		session.WithLogger(a.logger.Named("session")),
		session.WithRecorder(a.metrics),
		session.WithContext(a.runCtx),
		session.WithUploadLimit(a.cfg.Upload.MaxBytes),
	)
}

// Config returns the application configuration.
func (a *App) Config() *config.Config { return a.cfg }

// Logger returns the root logger.
func (a *App) Logger() *zap.Logger { return a.logger }

// Metrics returns the prometheus registry.
func (a *App) Metrics() *metrics.Registry { return a.metrics }

// Client returns the backtest service client.
func (a *App) Client() *client.Client { return a.client }

// Exporter returns the PNG exporter.
func (a *App) Exporter() *export.Exporter { return a.exporter }

// Sessions returns the session store.
func (a *App) Sessions() *session.Store { return a.sessions }

// SetSweepInterval sets how often idle sessions are dropped.
func (a *App) SetSweepInterval(d time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if d > 0 {
		a.sweepInterval = d
	}
}

// Start runs the session sweep loop until ctx is cancelled or Stop is called.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return fmt.Errorf("app already running")
	}
	a.running = true

	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	interval := a.sweepInterval
	a.mu.Unlock()

	a.logger.Info("quantview starting",
		zap.String("backtest_url", a.client.BaseURL()),
		zap.Duration("sweep_interval", interval),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.mu.Lock()
			a.running = false
			a.mu.Unlock()
			return ctx.Err()
		case <-ticker.C:
			if n := a.sessions.Sweep(); n > 0 {
				a.logger.Debug("expired sessions dropped", zap.Int("count", n))
			}
		}
	}
}

// Stop ends the sweep loop and cancels in-flight backtests.
func (a *App) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		a.cancel()
	}
	a.runCancel()
}
