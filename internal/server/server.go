// Package server runs the perpetual mode: the cron scheduler plus the ops HTTP listener.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/quotes-crawler/internal/api"
	"github.com/JakeFAU/quotes-crawler/internal/app"
	"github.com/JakeFAU/quotes-crawler/internal/config"
	"github.com/JakeFAU/quotes-crawler/internal/scheduler"
)

// Options tune a Server.
type Options struct {
	// RunNow starts one crawl immediately, before the first scheduled tick.
	RunNow bool
}

// Server contains the perpetual-mode dependencies.
type Server struct {
	cfg       config.Config
	logger    *zap.Logger
	app       *app.App
	scheduler *scheduler.Scheduler
	apiServer *api.Server
	opts      Options
}

// New builds a Server around an App.
func New(cfg config.Config, a *app.App, logger *zap.Logger, opts Options) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("schedule timezone: %w", err)
	}
	sched, err := scheduler.New(cfg.Schedule.Cron, loc, a.ScheduledRun, logger)
	if err != nil {
		return nil, err
	}
	return &Server{
		cfg:       cfg,
		logger:    logger,
		app:       a,
		scheduler: sched,
		apiServer: api.NewServer(a, logger),
		opts:      opts,
	}, nil
}

// Handler exposes the ops API router.
func (s *Server) Handler() http.Handler {
	return s.apiServer.Handler()
}

// Run starts the application and blocks until the context is canceled.
func (s *Server) Run(ctx context.Context) error {
	ctx, stop := context.WithCancel(ctx)
	defer stop()
	s.app.SetBackground(ctx)
	s.logger.Info("application started", zap.String("schedule", s.cfg.Schedule.Cron))

	var srv *http.Server
	if s.cfg.Server.Port > 0 {
		ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.cfg.Server.Port))
		if err != nil {
			return fmt.Errorf("listen on port %d: %w", s.cfg.Server.Port, err)
		}
		srv = &http.Server{
			Handler:           s.apiServer.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			s.logger.Info("http server started", zap.String("addr", ln.Addr().String()))
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.logger.Error("http server error", zap.Error(err))
				stop()
			}
		}()
	}

	if s.opts.RunNow {
		if runID, err := s.app.Trigger(); err != nil {
			s.logger.Error("initial run could not start", zap.Error(err))
		} else {
			s.logger.Info("initial run started", zap.String("run_id", runID))
		}
	}

	schedErr := s.scheduler.Run(ctx)
	s.logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if srv != nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("server shutdown error", zap.Error(err))
		}
	}
	s.app.Wait()
	s.logger.Info("shutdown complete")
	return schedErr
}
