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

// PopulatePerson builds and persists one person's profile.
func (s *Service) PopulatePerson(ctx context.Context, userID id.UserID) (out *models.PopulateOutcome, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanPopulatePerson,
		tracer.String(tracer.AttrUserID, userID.String()),
	)
	start := time.Now()
	defer func() {
		span.End(err)
		s.metrics.ObserveRun(metrics.PipelinePopulate, runOutcome(err), time.Since(start).Seconds())
	}()

	err = s.withLease(ctx, span, userID, func(ctx context.Context) error {
		var runErr error
		out, runErr = s.populate(ctx, span, userID)
		return runErr
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) populate(ctx context.Context, span tracer.Span, userID id.UserID) (*models.PopulateOutcome, error) {
	docs, err := s.docs.LoadDocuments(ctx, userID, false)
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

	res, err := s.engine.Builder.Build(ctx, creds)
	if err != nil {
		return nil, translateError(err, "failed to build profile")
	}
	outcome := populateOutcome(userID, res, s.now())
	span.SetAttributes(
		tracer.Int(tracer.AttrUnresolved, outcome.Unresolved),
		tracer.Bool(tracer.AttrComplete, outcome.Complete),
	)

	err = s.uow.RunInTx(ctx, func(ctx context.Context, w ports.ProfileWriter) error {
		if err := w.ResetVerification(ctx, userID, outcome.CompletedAt); err != nil {
			return err
		}
		if err := w.UpsertUserInfo(ctx, outcome.Info); err != nil {
			return err
		}
		return w.WriteUserProfile(ctx, outcome)
	})
	if err != nil {
		return nil, translateError(err, "failed to persist profile")
	}

	s.logger.InfoContext(ctx, "profile populated",
		"user_id", userID.String(),
		"documents", len(docs),
		"credentials", len(creds),
		"unresolved", outcome.Unresolved,
		"complete", outcome.Complete,
	)

	s.syncIdentity(ctx, span, outcome)
	s.publish(ctx, span, models.ProfileEvent{
		Type:       models.EventPopulated,
		UserID:     userID.String(),
		Complete:   outcome.Complete,
		Unresolved: outcome.Unresolved,
		Provenance: outcome.Provenance,
		OccurredAt: outcome.CompletedAt,
	})
	return &outcome, nil
}

// RunPopulateBatch picks the next candidates and populates each in turn.
func (s *Service) RunPopulateBatch(ctx context.Context) (models.BatchReport, error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanPopulateBatch)
	ids, err := s.profiles.PopulateCandidates(ctx, s.batchSize)
	if err != nil {
		err = translateError(err, "failed to select populate candidates")
		span.End(err)
		return models.BatchReport{Pipeline: metrics.PipelinePopulate}, err
	}
	report, err := s.runBatch(ctx, metrics.PipelinePopulate, ids, s.populateOne)
	span.SetAttributes(tracer.Int(tracer.AttrBatchSize, report.Picked), tracer.Int(tracer.AttrFailed, report.Failed))
	span.End(err)
	return report, err
}

// PopulateUsers populates the named persons as one batch.
func (s *Service) PopulateUsers(ctx context.Context, ids []id.UserID) (models.BatchReport, error) {
	return s.runBatch(ctx, metrics.PipelinePopulate, ids, s.populateOne)
}

func (s *Service) populateOne(ctx context.Context, userID id.UserID) error {
	_, err := s.PopulatePerson(ctx, userID)
	return err
}
