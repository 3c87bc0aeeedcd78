package service

import (
	"context"
	"time"

	"beneficiary/internal/platform/tracer"
	"beneficiary/internal/profile/metrics"
	"beneficiary/internal/profile/models"
	"beneficiary/internal/profile/ports"
	id "beneficiary/pkg/domain"
)

// ValidatePerson corroborates one person's stored profile and persists the
// results.
func (s *Service) ValidatePerson(ctx context.Context, userID id.UserID) (out *models.ValidationOutcome, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanValidatePerson,
		tracer.String(tracer.AttrUserID, userID.String()),
	)
	start := time.Now()
	defer func() {
		span.End(err)
		s.metrics.ObserveRun(metrics.PipelineValidate, runOutcome(err), time.Since(start).Seconds())
	}()

	err = s.withLease(ctx, span, userID, func(ctx context.Context) error {
		var runErr error
		out, runErr = s.validate(ctx, span, userID)
		return runErr
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) validate(ctx context.Context, span tracer.Span, userID id.UserID) (*models.ValidationOutcome, error) {
	stored, err := s.profiles.LoadStoredProfile(ctx, userID)
	if err != nil {
		return nil, translateError(err, "failed to load stored profile")
	}
	docs, err := s.docs.LoadDocuments(ctx, userID, true)
	if err != nil {
		return nil, translateError(err, "failed to load documents")
	}
	creds, err := s.engine.Normalizer.Normalize(ctx, docs)
	if err != nil {
		return nil, translateError(err, "failed to normalize documents")
	}
	span.SetAttributes(
		tracer.Int(tracer.AttrDocuments, len(docs)),
		tracer.Int(tracer.AttrCredentials, len(creds)),
	)

	results, err := s.engine.Validator.Validate(ctx, stored, creds)
	if err != nil {
		return nil, translateError(err, "failed to validate profile")
	}
	outcome := models.ValidationOutcome{
		Results:     results,
		AllVerified: models.AllVerified(results),
		VerifiedAt:  s.now(),
	}
	span.SetAttributes(tracer.Bool(tracer.AttrAllVerified, outcome.AllVerified))

	err = s.uow.RunInTx(ctx, func(ctx context.Context, w ports.ProfileWriter) error {
		return w.WriteValidation(ctx, userID, outcome)
	})
	if err != nil {
		return nil, translateError(err, "failed to persist validation")
	}

	s.logger.InfoContext(ctx, "profile validated",
		"user_id", userID.String(),
		"credentials", len(creds),
		"all_verified", outcome.AllVerified,
	)

	s.publish(ctx, span, models.ProfileEvent{
		Type:       models.EventValidated,
		UserID:     userID.String(),
		Complete:   outcome.AllVerified,
		Results:    outcome.Results,
		OccurredAt: outcome.VerifiedAt,
	})
	return &outcome, nil
}

// RunValidateBatch picks the next candidates and validates each in turn.
func (s *Service) RunValidateBatch(ctx context.Context) (models.BatchReport, error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanValidateBatch)
	ids, err := s.profiles.ValidateCandidates(ctx, s.batchSize)
	if err != nil {
		err = translateError(err, "failed to select validate candidates")
		span.End(err)
		return models.BatchReport{Pipeline: metrics.PipelineValidate}, err
	}
	report, err := s.runBatch(ctx, metrics.PipelineValidate, ids, s.validateOne)
	span.SetAttributes(tracer.Int(tracer.AttrBatchSize, report.Picked), tracer.Int(tracer.AttrFailed, report.Failed))
	span.End(err)
	return report, err
}

// ValidateUsers validates the named persons as one batch.
func (s *Service) ValidateUsers(ctx context.Context, ids []id.UserID) (models.BatchReport, error) {
	return s.runBatch(ctx, metrics.PipelineValidate, ids, s.validateOne)
}

func (s *Service) validateOne(ctx context.Context, userID id.UserID) error {
	_, err := s.ValidatePerson(ctx, userID)
	return err
}
