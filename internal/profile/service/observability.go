package service

import (
	"context"

	"beneficiary/internal/platform/tracer"
	"beneficiary/internal/profile/metrics"
	"beneficiary/internal/profile/models"
)

// syncIdentity pushes the built names to the identity provider. Failures are
// logged only; the committed profile stands.
func (s *Service) syncIdentity(ctx context.Context, span tracer.Span, outcome models.PopulateOutcome) {
	if s.identity == nil {
		return
	}
	if err := s.identity.UpdateNames(ctx, outcome.UserID, outcome.Names.FirstName, outcome.Names.LastName); err != nil {
		s.metrics.IncIdentitySyncFailed()
		s.logger.ErrorContext(ctx, "failed to update identity directory",
			"user_id", outcome.UserID.String(),
			"error", err,
		)
		return
	}
	span.AddEvent(tracer.EventIdentitySynced)
}

// publish emits a lifecycle event. Failures are logged and counted only.
func (s *Service) publish(ctx context.Context, span tracer.Span, event models.ProfileEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.metrics.IncEventPublished(string(event.Type), metrics.OutcomeFailed)
		s.logger.ErrorContext(ctx, "failed to publish profile event",
			"type", string(event.Type),
			"user_id", event.UserID,
			"error", err,
		)
		return
	}
	s.metrics.IncEventPublished(string(event.Type), metrics.OutcomeSuccess)
	span.AddEvent(tracer.EventPublished, tracer.String("type", string(event.Type)))
}
