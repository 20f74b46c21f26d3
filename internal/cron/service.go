package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/menubot/pkg/logger"
	"github.com/angelmondragon/menubot/pkg/metrics"
	"golang.org/x/sync/errgroup"
)

type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Metrics  *metrics.JobMetrics
}

// Service ticks every registered schedule independently. A job's first run
// fires one interval after Run starts.
type Service struct {
	logg     *logger.Logger
	registry *Registry
	metrics  *metrics.JobMetrics
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	registry := params.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	return &Service{
		logg:     params.Logger,
		registry: registry,
		metrics:  params.Metrics,
	}, nil
}

// Run blocks until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	schedules := s.registry.Schedules()
	ctx = s.logg.WithField(ctx, "jobs", len(schedules))
	s.logg.Info(ctx, "job scheduler started")
	defer s.logg.Info(ctx, "job scheduler stopped")

	if len(schedules) == 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, sched := range schedules {
		g.Go(func() error { return s.loop(gctx, sched) })
	}
	return g.Wait()
}

func (s *Service) loop(ctx context.Context, sched Schedule) error {
	ticker := time.NewTicker(sched.Every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runGuarded(ctx, sched)
		}
	}
}

func (s *Service) runGuarded(ctx context.Context, sched Schedule) {
	name := sched.Job.Name()
	ctx = s.logg.WithFields(ctx, map[string]any{
		"job":      name,
		"interval": sched.Every.String(),
	})

	locked, err := sched.Lock.Acquire(ctx)
	if err != nil {
		s.logg.Error(ctx, "job lock acquire failed", err)
		s.metrics.IncFailure(name)
		return
	}
	if !locked {
		s.logg.Info(ctx, "job lock held elsewhere; skipping run")
		return
	}
	defer func() {
		if err := sched.Lock.Release(ctx); err != nil {
			s.logg.Error(ctx, "job lock release failed", err)
		}
	}()

	s.logg.Debug(ctx, "job start")
	start := time.Now()
	err = sched.Job.Run(ctx)
	duration := time.Since(start)
	s.metrics.ObserveDuration(name, duration)

	ctx = s.logg.WithField(ctx, "duration_ms", duration.Milliseconds())
	if err != nil {
		s.logg.Error(ctx, "job failed", err)
		s.metrics.IncFailure(name)
		return
	}
	s.logg.Info(ctx, "job completed")
	s.metrics.IncSuccess(name)
}
