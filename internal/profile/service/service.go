// Package service runs the populate and validate pipelines for one person or
// a batch of persons.
//
// A person's run is: lease, load documents, normalize, build or validate,
// persist in one unit of work, then best-effort identity sync and event
// publication. A failing person never aborts the rest of its batch.
package service

import (
	"errors"
	"log/slog"
	"time"

	"beneficiary/internal/platform/tracer"
	"beneficiary/internal/profile/builder"
	"beneficiary/internal/profile/metrics"
	"beneficiary/internal/profile/normalizer"
	"beneficiary/internal/profile/ports"
	"beneficiary/internal/profile/validator"
)

const defaultBatchSize = 10

// Engine is the pure reconciliation core shared by both pipelines.
type Engine struct {
	Normalizer *normalizer.Normalizer
	Builder    *builder.Builder
	Validator  *validator.Validator
}

type Service struct {
	docs      ports.DocumentLoader
	profiles  ports.ProfileStore
	uow       ports.UnitOfWork
	engine    Engine
	identity  ports.IdentityDirectory
	events    ports.EventPublisher
	lease     ports.Lease
	tracer    tracer.Tracer
	metrics   *metrics.Metrics
	logger    *slog.Logger
	batchSize int
	now       func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// WithIdentityDirectory enables pushing built names to the identity provider.
func WithIdentityDirectory(d ports.IdentityDirectory) Option {
	return func(s *Service) {
		s.identity = d
	}
}

func WithEventPublisher(p ports.EventPublisher) Option {
	return func(s *Service) {
		s.events = p
	}
}

// WithLease makes every person run hold an exclusive lease.
func WithLease(l ports.Lease) Option {
	return func(s *Service) {
		s.lease = l
	}
}

// WithBatchSize bounds how many candidates one batch picks. Values below 1
// are ignored.
func WithBatchSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func New(docs ports.DocumentLoader, profiles ports.ProfileStore, uow ports.UnitOfWork, engine Engine, opts ...Option) (*Service, error) {
	if docs == nil {
		return nil, errors.New("document loader is required")
	}
	if profiles == nil {
		return nil, errors.New("profile store is required")
	}
	if uow == nil {
		return nil, errors.New("unit of work is required")
	}
	if engine.Normalizer == nil || engine.Builder == nil || engine.Validator == nil {
		return nil, errors.New("normalizer, builder and validator are required")
	}

	s := &Service{
		docs:      docs,
		profiles:  profiles,
		uow:       uow,
		engine:    engine,
		tracer:    tracer.NewNoop(),
		logger:    slog.Default(),
		batchSize: defaultBatchSize,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// BatchSize is the configured candidate limit.
func (s *Service) BatchSize() int {
	return s.batchSize
}
