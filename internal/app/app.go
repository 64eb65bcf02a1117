// Package app wires configuration, logging, fetcher, storage, and crawler
// into runnable crawl jobs.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/quotes-crawler/internal/api"
	"github.com/JakeFAU/quotes-crawler/internal/clock/system"
	"github.com/JakeFAU/quotes-crawler/internal/config"
	"github.com/JakeFAU/quotes-crawler/internal/crawler"
	collyfetcher "github.com/JakeFAU/quotes-crawler/internal/fetcher/colly"
	"github.com/JakeFAU/quotes-crawler/internal/id/uuid"
	"github.com/JakeFAU/quotes-crawler/internal/metrics"
	"github.com/JakeFAU/quotes-crawler/internal/storage/memory"
	"github.com/JakeFAU/quotes-crawler/internal/storage/postgres"
)

// RunStore is a storage gateway scoped to one run.
type RunStore interface {
	crawler.Store
	Close(ctx context.Context) error
}

// StoreOpener opens the storage gateway for a run.
type StoreOpener func(ctx context.Context) (RunStore, error)

// App holds the long-lived collaborators and the outcome of the last run.
type App struct {
	cfg       config.Config
	logger    *zap.Logger
	fetcher   crawler.Fetcher
	openStore StoreOpener
	clock     crawler.Clock
	ids       crawler.IDGenerator

	runMu sync.Mutex

	mu         sync.RWMutex
	last       *crawler.RunSummary
	connErr    error
	background context.Context
	wg         sync.WaitGroup
}

// Option customizes an App.
type Option func(*App)

// WithFetcher replaces the colly fetcher.
func WithFetcher(f crawler.Fetcher) Option {
	return func(a *App) { a.fetcher = f }
}

// WithStoreOpener replaces the driver-selected storage gateway.
func WithStoreOpener(open StoreOpener) Option {
	return func(a *App) { a.openStore = open }
}

// WithClock replaces the system clock.
func WithClock(c crawler.Clock) Option {
	return func(a *App) { a.clock = c }
}

// WithIDGenerator replaces the UUID v7 run id generator.
func WithIDGenerator(g crawler.IDGenerator) Option {
	return func(a *App) { a.ids = g }
}

// New builds an App from configuration.
func New(cfg config.Config, logger *zap.Logger, opts ...Option) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{
		cfg:        cfg,
		logger:     logger,
		clock:      system.New(),
		ids:        uuid.New(),
		background: context.Background(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.fetcher == nil {
		a.fetcher = collyfetcher.New(collyfetcher.Config{
			UserAgent: cfg.Site.UserAgent,
			Timeout:   cfg.Timeout(),
		})
	}
	if a.openStore == nil {
		a.openStore = a.driverStore
	}
	return a
}

func (a *App) driverStore(ctx context.Context) (RunStore, error) {
	switch a.cfg.DB.Driver {
	case config.DriverMemory:
		return memory.New(), nil
	case config.DriverPostgres, "":
		gw, err := postgres.Open(ctx, postgres.Config{
			Host:           a.cfg.DB.Host,
			Port:           a.cfg.DB.Port,
			User:           a.cfg.DB.User,
			Password:       a.cfg.DB.Password,
			Name:           a.cfg.DB.Name,
			SSLMode:        a.cfg.DB.SSLMode,
			ConnectTimeout: a.cfg.ConnectTimeout(),
			EnsureSchema:   a.cfg.DB.EnsureSchema,
		}, a.logger)
		if err != nil {
			return nil, err
		}
		return gw, nil
	default:
		return nil, fmt.Errorf("%w: unknown db driver %q", crawler.ErrConnection, a.cfg.DB.Driver)
	}
}

// RunOnce opens storage, crawls until a stop condition, and closes storage.
// The only error returned is a storage connection failure; everything that
// happens after the connection is open is reported in the summary.
func (a *App) RunOnce(ctx context.Context) (crawler.RunSummary, error) {
	a.runMu.Lock()
	defer a.runMu.Unlock()
	return a.runLocked(ctx)
}

func (a *App) runLocked(ctx context.Context) (crawler.RunSummary, error) {
	runID, err := a.ids.NewID()
	if err != nil {
		a.logger.Warn("run id generation failed", zap.Error(err))
	}
	return a.run(ctx, runID)
}

func (a *App) run(ctx context.Context, runID string) (crawler.RunSummary, error) {
	logger := a.logger.With(zap.String("run_id", runID))
	summary := crawler.RunSummary{
		ID:        runID,
		StartedAt: a.clock.Now(),
	}

	store, err := a.openStore(ctx)
	if err != nil {
		if !errors.Is(err, crawler.ErrConnection) {
			err = fmt.Errorf("%w: %w", crawler.ErrConnection, err)
		}
		logger.Error("database connection failed", zap.Error(err))
		summary.Status = crawler.RunStatusFailed
		summary.ErrorText = err.Error()
		a.setConnErr(err)
		a.finish(&summary)
		return summary, err
	}
	a.setConnErr(nil)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			logger.Warn("closing storage failed", zap.Error(err))
		}
	}()

	c := crawler.New(crawler.Config{
		BaseURL:   a.cfg.Site.BaseURL,
		StartPage: a.cfg.Site.StartPage,
		MaxPages:  a.cfg.Site.MaxPages,
	}, a.fetcher, store, logger.Named("crawler"))

	summary.Stats = c.Run(ctx)
	summary.Status = crawler.RunStatusSucceeded
	switch summary.Stats.StopReason {
	case crawler.StopTransportError, crawler.StopParseError, crawler.StopCanceled:
		summary.Status = crawler.RunStatusFailed
		summary.ErrorText = "crawl stopped: " + string(summary.Stats.StopReason)
	}
	a.finish(&summary)
	return summary, nil
}

func (a *App) finish(summary *crawler.RunSummary) {
	summary.EndedAt = a.clock.Now()
	metrics.ObserveRun(string(summary.Status), summary.EndedAt.Sub(summary.StartedAt))
	a.logger.Info("run finished",
		zap.String("run_id", summary.ID),
		zap.String("status", string(summary.Status)),
		zap.Duration("duration", summary.EndedAt.Sub(summary.StartedAt)),
		zap.Int("pages", summary.Stats.PagesProcessed),
		zap.Int("records_persisted", summary.Stats.RecordsPersisted),
	)

	a.mu.Lock()
	defer a.mu.Unlock()
	s := *summary
	a.last = &s
}

// ScheduledRun is the scheduler job. It skips the tick when a triggered run
// is still going and only logs a run that could not start.
func (a *App) ScheduledRun(ctx context.Context) {
	if !a.runMu.TryLock() {
		a.logger.Warn("skipping scheduled run; a crawl is already running")
		return
	}
	defer a.runMu.Unlock()
	if _, err := a.runLocked(ctx); err != nil {
		a.logger.Error("scheduled run could not start", zap.Error(err))
	}
}

// SetBackground sets the context used by runs started through Trigger.
func (a *App) SetBackground(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.background = ctx
}

// Trigger starts a run in the background unless one is in progress.
func (a *App) Trigger() (string, error) {
	if !a.runMu.TryLock() {
		return "", api.ErrRunInProgress
	}
	runID, err := a.ids.NewID()
	if err != nil {
		a.runMu.Unlock()
		return "", fmt.Errorf("generate run id: %w", err)
	}

	a.mu.RLock()
	ctx := a.background
	a.mu.RUnlock()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer a.runMu.Unlock()
		if _, err := a.run(ctx, runID); err != nil {
			a.logger.Error("triggered run could not start", zap.Error(err))
		}
	}()
	return runID, nil
}

// Wait blocks until runs started by Trigger have returned.
func (a *App) Wait() {
	a.wg.Wait()
}

// LastRun returns the most recent finished run.
func (a *App) LastRun() (crawler.RunSummary, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.last == nil {
		return crawler.RunSummary{}, false
	}
	return *a.last, true
}

// Ready fails while the most recent run could not reach storage.
func (a *App) Ready() error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.connErr != nil {
		return fmt.Errorf("last run could not start: %w", a.connErr)
	}
	return nil
}

func (a *App) setConnErr(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.connErr = err
}
