// Package scheduler runs the periodic jobs of the service.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"farmcast/internal/middleware"

	"github.com/robfig/cron/v3"
)

// Job is one scheduled unit of work.
type Job func(ctx context.Context) error

// Scheduler wraps a cron runner whose jobs share a cancellable context.
type Scheduler struct {
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex
	active map[string]bool
}

// New creates a Scheduler evaluating specs in the named time zone
// ("Local" and "" use the host zone).
func New(timezone string) (*Scheduler, error) {
	loc := time.Local
	if timezone != "" && timezone != "Local" {
		var err error
		if loc, err = time.LoadLocation(timezone); err != nil {
			return nil, fmt.Errorf("invalid ALERT_TIMEZONE %q: %w", timezone, err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(loc), cron.WithChain(cron.Recover(cronLogger{}))),
		ctx:    ctx,
		cancel: cancel,
		active: map[string]bool{},
	}, nil
}

// Add registers job under a standard five field cron spec. A run that is still
// going when the next tick fires is not started twice.
func (s *Scheduler) Add(name, spec string, job Job) error {
	_, err := s.cron.AddFunc(spec, func() { s.run(name, job) })
	if err != nil {
		return fmt.Errorf("invalid schedule %q for %s: %w", spec, name, err)
	}
	return nil
}

func (s *Scheduler) run(name string, job Job) {
	s.mu.Lock()
	if s.active[name] {
		s.mu.Unlock()
		middleware.Logger.Warn("scheduled job still running, skipping tick", slog.String("job", name))
		return
	}
	s.active[name] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.active, name)
		s.mu.Unlock()
	}()

	start := time.Now()
	middleware.Logger.Info("scheduled job started", slog.String("job", name))
	if err := job(s.ctx); err != nil {
		middleware.Logger.Error("scheduled job failed",
			slog.String("job", name),
			slog.String("error", err.Error()),
			slog.Duration("duration", time.Since(start)),
		)
		return
	}
	middleware.Logger.Info("scheduled job finished", slog.String("job", name), slog.Duration("duration", time.Since(start)))
}

// Start runs the scheduler in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop cancels running jobs and waits for them until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.cancel()
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger adapts cron's logger to the application logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	middleware.Logger.Debug(msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	middleware.Logger.Error(msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
