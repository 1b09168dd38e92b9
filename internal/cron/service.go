package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/bookstore-storefront/pkg/logger"
)

const defaultInterval = 5 * time.Minute

// ServiceParams configure the housekeeping loop.
type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Interval time.Duration
}

// Service runs in-process housekeeping jobs on a fixed cadence. Jobs touch only this
// replica's memory, so no cross-replica lock is taken.
type Service struct {
	logg     *logger.Logger
	registry *Registry
	interval time.Duration
}

// NewService builds a housekeeping service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	registry := params.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Service{
		logg:     params.Logger,
		registry: registry,
		interval: interval,
	}, nil
}

// Run ticks until the context is canceled. The first cycle runs after one interval.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "housekeeping stopped")
			return ctx.Err()
		case <-ticker.C:
			_ = s.RunCycle(ctx)
		}
	}
}

// RunCycle runs every registered job once. A failing job does not stop the others;
// their errors are combined.
func (s *Service) RunCycle(ctx context.Context) error {
	var errs []error
	for _, job := range s.registry.Jobs() {
		if err := s.runJob(ctx, job); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", job.Name(), err))
		}
	}
	return multierr.Combine(errs...)
}

func (s *Service) runJob(ctx context.Context, job Job) error {
	jobCtx := s.logg.WithFields(ctx, map[string]any{"job": job.Name(), "event": "housekeeping.job"})
	start := time.Now()
	err := job.Run(jobCtx)
	jobCtx = s.logg.WithField(jobCtx, "duration_ms", time.Since(start).Milliseconds())
	if err != nil {
		s.logg.Error(jobCtx, "job failed", err)
		return err
	}
	s.logg.Info(jobCtx, "job completed")
	return nil
}
