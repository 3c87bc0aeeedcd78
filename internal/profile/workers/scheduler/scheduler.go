// Package scheduler drives the populate and validate batches on independent
// tickers. Each pipeline runs at most one batch at a time; a slow batch
// delays that pipeline's next tick and never the other's.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"beneficiary/internal/profile/metrics"
	"beneficiary/internal/profile/models"
)

// Runner runs one batch of a pipeline.
type Runner interface {
	RunPopulateBatch(ctx context.Context) (models.BatchReport, error)
	RunValidateBatch(ctx context.Context) (models.BatchReport, error)
}

type Scheduler struct {
	runner           Runner
	populateInterval time.Duration
	validateInterval time.Duration
	logger           *slog.Logger
}

type Option func(*Scheduler)

// WithPopulateInterval sets the populate tick. Zero disables the pipeline.
func WithPopulateInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d >= 0 {
			s.populateInterval = d
		}
	}
}

// WithValidateInterval sets the validate tick. Zero disables the pipeline.
func WithValidateInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d >= 0 {
			s.validateInterval = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func New(runner Runner, opts ...Option) (*Scheduler, error) {
	if runner == nil {
		return nil, errors.New("runner is required")
	}
	s := &Scheduler{
		runner:           runner,
		populateInterval: 5 * time.Minute,
		validateInterval: 10 * time.Second,
		logger:           slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start runs both pipelines until ctx is cancelled, then returns ctx.Err().
func (s *Scheduler) Start(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	if s.populateInterval > 0 {
		g.Go(func() error { return s.loop(ctx, metrics.PipelinePopulate, s.populateInterval) })
	}
	if s.validateInterval > 0 {
		g.Go(func() error { return s.loop(ctx, metrics.PipelineValidate, s.validateInterval) })
	}
	s.logger.InfoContext(ctx, "profile scheduler started",
		"populate_interval", s.populateInterval.String(),
		"validate_interval", s.validateInterval.String(),
	)
	g.Go(func() error {
		<-ctx.Done()
		return ctx.Err()
	})
	return g.Wait()
}

func (s *Scheduler) loop(ctx context.Context, pipeline string, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := s.RunOnce(ctx, pipeline); err != nil && ctx.Err() == nil {
				s.logger.ErrorContext(ctx, "profile batch had failures",
					"pipeline", pipeline,
					"error", err,
				)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// RunOnce runs a single batch of the named pipeline.
func (s *Scheduler) RunOnce(ctx context.Context, pipeline string) (models.BatchReport, error) {
	switch pipeline {
	case metrics.PipelinePopulate:
		return s.runner.RunPopulateBatch(ctx)
	case metrics.PipelineValidate:
		return s.runner.RunValidateBatch(ctx)
	default:
		return models.BatchReport{}, fmt.Errorf("unknown pipeline %q", pipeline)
	}
}
