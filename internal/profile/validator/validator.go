// Package validator corroborates a stored profile against a person's
// credentials.
//
// Unlike the builder, every configured file is tried for an attribute and
// each one that matches is recorded; the attribute is verified when at least
// one file matched.
package validator

import (
	"context"
	"log/slog"

	"beneficiary/internal/profile/domain/credential"
	"beneficiary/internal/profile/domain/transform"
	"beneficiary/internal/profile/mapping"
	"beneficiary/internal/profile/metrics"
	"beneficiary/internal/profile/models"
	"beneficiary/pkg/jsonvalue"
)

type Validator struct {
	cfg     *mapping.Config
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Validator)

func WithLogger(logger *slog.Logger) Option {
	return func(v *Validator) {
		v.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(v *Validator) {
		v.metrics = m
	}
}

func New(cfg *mapping.Config, opts ...Option) *Validator {
	v := &Validator{
		cfg:    cfg,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate returns one result per stored attribute, in stored order. The only
// error is context cancellation.
func (v *Validator) Validate(ctx context.Context, stored models.StoredProfile, creds []*credential.Credential) ([]models.ValidationResult, error) {
	if stored.Attributes == nil {
		return []models.ValidationResult{}, nil
	}
	attrs := stored.Attributes.Fields()
	results := make([]models.ValidationResult, 0, len(attrs))
	for _, attr := range attrs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res := v.validateAttribute(ctx, attr, stored.Attributes.Get(attr), creds)
		v.metrics.IncAttributeCheck(attr, res.Verified)
		results = append(results, res)
	}
	return results, nil
}

func (v *Validator) validateAttribute(ctx context.Context, attr string, stored jsonvalue.Value, creds []*credential.Credential) models.ValidationResult {
	res := models.ValidationResult{Attribute: attr, DocsUsed: []string{}}

	files, ok := v.cfg.Files(attr)
	if !ok || len(files) == 0 {
		v.logger.WarnContext(ctx, "no corroborating documents configured", "attribute", attr)
		return res
	}
	if jsonvalue.IsEmpty(stored) {
		return res
	}

	for _, file := range files {
		if v.matchFile(attr, stored, file, creds) {
			res.DocsUsed = append(res.DocsUsed, file)
		}
	}
	res.Verified = len(res.DocsUsed) > 0
	return res
}

// matchFile reports whether any descriptor of file locates a credential
// value that agrees with stored.
func (v *Validator) matchFile(attr string, stored jsonvalue.Value, file string, creds []*credential.Credential) bool {
	for _, desc := range v.cfg.Descriptors(file) {
		c := findCredential(creds, desc, file)
		if c == nil {
			continue
		}
		path := desc.Fields[attr]
		if usesFullName(attr, c) {
			path = desc.Fields[transform.PathName]
		}
		if v.compare(attr, stored, c.Resolve(path), c) {
			return true
		}
	}
	return false
}

func findCredential(creds []*credential.Credential, desc mapping.Descriptor, file string) *credential.Credential {
	for _, c := range creds {
		if c.Matches(credential.VCType(desc.VCType), credential.Format(desc.Format), file) {
			return c
		}
	}
	return nil
}

func isNameAttribute(attr string) bool {
	switch attr {
	case models.AttrFirstName, models.AttrMiddleName, models.AttrLastName:
		return true
	default:
		return false
	}
}

// usesFullName reports whether attr must be cut out of a single full-name
// value.
func usesFullName(attr string, c *credential.Credential) bool {
	return isNameAttribute(attr) && c.VCType() == credential.VCTypeDigilocker
}
