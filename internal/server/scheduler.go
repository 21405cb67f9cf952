package server

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gorhill/cronexpr"
	"go.uber.org/zap"

	"github.com/mohammad-safakhou/pathfinder/internal/logging"
	"github.com/mohammad-safakhou/pathfinder/repository"
)

const (
	schedulerLockKey = "scheduler:pipeline"
	defaultLockTTL   = 2 * time.Hour
)

// Scheduler runs discovery followed by extraction on a cron expression
// ("@daily", "@hourly" and 5 or 6 field forms). The lock keeps replicas
// sharing a Redis from running the same tick twice.
type Scheduler struct {
	Runner  Runner
	Locker  repository.Locker
	LockTTL time.Duration
	Logger  *zap.Logger

	expr *cronexpr.Expression
	now  func() time.Time
}

func NewScheduler(spec string, runner Runner, locker repository.Locker, logger *zap.Logger) (*Scheduler, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, errors.New("schedule is empty")
	}
	expr, err := cronexpr.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", spec, err)
	}
	return &Scheduler{
		Runner:  runner,
		Locker:  locker,
		LockTTL: defaultLockTTL,
		Logger:  logging.OrNop(logger).Named("scheduler"),
		expr:    expr,
		now:     time.Now,
	}, nil
}

// Next returns the first fire time strictly after t, zero when none remain.
func (s *Scheduler) Next(t time.Time) time.Time { return s.expr.Next(t) }

// Start fires ticks until ctx is done. It returns immediately.
func (s *Scheduler) Start(ctx context.Context) {
	go func() {
		for {
			next := s.Next(s.now())
			if next.IsZero() {
				s.Logger.Warn("schedule has no future fire time")
				return
			}
			s.Logger.Info("next run", zap.Time("at", next))
			timer := time.NewTimer(time.Until(next))
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
				s.Tick(ctx)
			}
		}
	}()
}

// Tick runs the pipeline once if the lock can be taken. It reports whether
// a run happened.
func (s *Scheduler) Tick(ctx context.Context) bool {
	if s.Locker != nil {
		release, err := s.Locker.TryLock(ctx, schedulerLockKey, s.LockTTL)
		if err != nil {
			s.Logger.Warn("lock failed", zap.Error(err))
			return false
		}
		if release == nil {
			s.Logger.Info("run held by another instance, skipping")
			return false
		}
		defer release()
	}
	sum := s.Runner.Run(ctx)
	s.Logger.Info("scheduled run finished",
		zap.String("status", sum.Status),
		zap.Int("pages", sum.Discovery.PagesCrawled),
		zap.Int("added", sum.Extraction.Added))
	return true
}
