// Package scheduler triggers crawls on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job is a scheduled unit of work. It receives the scheduler's context.
type Job func(ctx context.Context)

// Scheduler runs one Job on a standard five-field cron expression (or a
// descriptor such as @daily). A run that is still going when the next tick
// fires causes that tick to be skipped.
type Scheduler struct {
	cron   *cron.Cron
	entry  cron.EntryID
	logger *zap.Logger
	cronLg *cronLogger
	runCtx context.Context
}

// New parses the cron expression and registers job. loc defaults to time.Local.
func New(spec string, loc *time.Location, job Job, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.Local
	}
	logger = logger.Named("scheduler")
	cl := &cronLogger{logger: logger.Sugar()}

	s := &Scheduler{
		logger: logger,
		cronLg: cl,
		runCtx: context.Background(),
	}
	// Recover sits inside SkipIfStillRunning so a panicking job still
	// releases the skip token.
	s.cron = cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.SkipIfStillRunning(cl), cron.Recover(cl)),
	)
	id, err := s.cron.AddFunc(spec, func() { job(s.runCtx) })
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", spec, err)
	}
	s.entry = id
	return s, nil
}

// Next returns the next activation time, or the zero time before Run starts.
func (s *Scheduler) Next() time.Time {
	return s.cron.Entry(s.entry).Next
}

// Run starts the scheduler and blocks until ctx is done, then waits for an
// in-flight job to return. Nothing is logged after Run returns.
func (s *Scheduler) Run(ctx context.Context) error {
	s.runCtx = ctx
	s.cron.Start()
	s.logger.Info("scheduler started", zap.Time("next_run", s.Next()))

	<-ctx.Done()
	s.logger.Info("scheduler stopping")
	<-s.cron.Stop().Done()
	s.cronLg.close()
	s.logger.Info("scheduler stopped")
	return nil
}

// cronLogger adapts zap to cron.Logger. Once closed it drops messages, since
// the cron loop goroutine may still log "stop" after Stop returns.
type cronLogger struct {
	mu     sync.Mutex
	closed bool
	logger *zap.SugaredLogger
}

func (l *cronLogger) close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
}

func (l *cronLogger) Info(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	if msg == "skip" {
		l.logger.Warnw("skipping tick; previous run still in progress", keysAndValues...)
		return
	}
	l.logger.Debugw(msg, keysAndValues...)
}

func (l *cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.logger.Errorw(msg, append(keysAndValues, "error", err)...)
}
