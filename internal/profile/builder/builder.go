// Package builder assembles a canonical profile from a person's credentials.
//
// Each field takes its value from the first document type in its priority
// list that yields a non-empty transformed value; later document types are
// not consulted. The provenance of a field is that single document type, or
// empty when nothing resolved.
package builder

import (
	"context"
	"errors"
	"log/slog"

	"beneficiary/internal/profile/domain/credential"
	"beneficiary/internal/profile/domain/transform"
	"beneficiary/internal/profile/mapping"
	"beneficiary/internal/profile/metrics"
	"beneficiary/internal/profile/models"
	"beneficiary/pkg/jsonvalue"
)

// Builder is stateless apart from its read-only configuration.
type Builder struct {
	cfg      *mapping.Config
	registry *transform.Registry
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type Option func(*Builder)

func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) {
		b.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Builder) {
		b.metrics = m
	}
}

func New(cfg *mapping.Config, registry *transform.Registry, opts ...Option) *Builder {
	b := &Builder{
		cfg:      cfg,
		registry: registry,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build resolves every configured field. The result always carries every
// field; the only error is context cancellation.
func (b *Builder) Build(ctx context.Context, creds []*credential.Credential) (models.BuildResult, error) {
	priority := b.cfg.Priority()
	profile := models.NewProfile(b.cfg.Fields())
	provenance := make(models.Provenance, len(priority))

	for _, p := range priority {
		if err := ctx.Err(); err != nil {
			return models.BuildResult{}, err
		}
		value, source := b.resolveField(ctx, p, creds)
		profile.Set(p.Field, value)
		if source == "" {
			provenance[p.Field] = []string{}
		} else {
			provenance[p.Field] = []string{source}
		}
		b.metrics.IncFieldResolution(p.Field, value != nil)
	}

	return models.BuildResult{Profile: profile, Provenance: provenance}, nil
}

func (b *Builder) resolveField(ctx context.Context, p mapping.FieldPriority, creds []*credential.Credential) (jsonvalue.Value, string) {
	for _, docType := range p.DocTypes {
		c := credential.FirstOfType(creds, docType)
		if c == nil {
			continue
		}
		paths, _ := b.cfg.Paths(docType)
		v, err := b.registry.Apply(transform.Input{Credential: c, Field: p.Field, Paths: paths})
		if err != nil {
			b.transformFailed(ctx, p.Field, c, err)
			continue
		}
		if jsonvalue.IsEmpty(v) {
			continue
		}
		return v, docType
	}
	return nil, ""
}

func (b *Builder) transformFailed(ctx context.Context, field string, c *credential.Credential, err error) {
	b.metrics.IncTransformFailure(field)
	level := slog.LevelError
	if errors.Is(err, transform.ErrRejected) {
		level = slog.LevelWarn
	}
	b.logger.Log(ctx, level, "field transform failed",
		"field", field,
		"doc_type", c.DocType(),
		"doc_id", c.DocumentID().String(),
		"error", err,
	)
}
