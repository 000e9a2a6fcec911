// Path: internal/service/sweeper.go
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// SweepFunc runs one pass and reports how many records it handled.
type SweepFunc func(ctx context.Context) (int, error)

// Sweeper runs a SweepFunc on a fixed interval. A pass never overlaps the
// previous one.
type Sweeper struct {
	name      string
	interval  time.Duration
	run       SweepFunc
	scheduler gocron.Scheduler
	log       *zap.Logger
}

// NewSweeper creates a sweeper. It does nothing until Start.
func NewSweeper(name string, interval time.Duration, run SweepFunc, log *zap.Logger) *Sweeper {
	return &Sweeper{name: name, interval: interval, run: run, log: log.With(zap.String("sweeper", name))}
}

// NewExpirySweeper expires pending requests older than ttl.
func NewExpirySweeper(broker *RequestBroker, ttl, interval time.Duration, log *zap.Logger) *Sweeper {
	return NewSweeper("request expiry", interval, func(ctx context.Context) (int, error) {
		return broker.ExpireStale(ctx, broker.now().Add(-ttl))
	}, log)
}

// NewAnnounceSweeper republishes the outcome of finished games whose
// announcement is older than grace and still unconfirmed.
func NewAnnounceSweeper(sessions *SessionEngine, grace, interval time.Duration, log *zap.Logger) *Sweeper {
	return NewSweeper("finish announcement", interval, func(ctx context.Context) (int, error) {
		return sessions.AnnounceUnannounced(ctx, sessions.now().Add(-grace))
	}, log)
}

// Start schedules the sweep. ctx bounds every run.
func (s *Sweeper) Start(ctx context.Context) error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}
	_, err = sched.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(func() { s.Sweep(ctx) }),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		sched.Shutdown()
		return fmt.Errorf("failed to schedule %s: %w", s.name, err)
	}
	s.scheduler = sched
	sched.Start()
	s.log.Info("Sweeper started", zap.Duration("interval", s.interval))
	return nil
}

// Sweep runs one pass.
func (s *Sweeper) Sweep(ctx context.Context) {
	n, err := s.run(ctx)
	if err != nil {
		s.log.Error("Sweep failed", zap.Int("handled", n), zap.Error(err))
		return
	}
	if n > 0 {
		s.log.Info("Sweep finished", zap.Int("handled", n))
	}
}

// Stop waits for a running sweep and stops the schedule.
func (s *Sweeper) Stop() error {
	if s.scheduler == nil {
		return nil
	}
	return s.scheduler.Shutdown()
}
