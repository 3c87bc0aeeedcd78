package service

import (
	"context"
	"errors"

	"beneficiary/internal/platform/tracer"
	"beneficiary/internal/sentinel"
	id "beneficiary/pkg/domain"
	dErrors "beneficiary/pkg/domain-errors"
)

func leaseKey(userID id.UserID) string {
	return "profile:person:" + userID.String()
}

// withLease runs fn while holding the person's lease. A held lease fails with
// CodeLocked; an unreachable lease backend is logged and fn runs unguarded.
func (s *Service) withLease(ctx context.Context, span tracer.Span, userID id.UserID, fn func(context.Context) error) error {
	if s.lease == nil {
		return fn(ctx)
	}

	key := leaseKey(userID)
	token, err := s.lease.Acquire(ctx, key)
	switch {
	case errors.Is(err, sentinel.ErrLeaseHeld):
		span.AddEvent(tracer.EventLeaseHeld)
		return dErrors.Wrap(err, dErrors.CodeLocked, "person is being processed by another worker")
	case err != nil:
		s.logger.WarnContext(ctx, "person lease unavailable, continuing without it",
			"user_id", userID.String(),
			"error", err,
		)
		return fn(ctx)
	}

	defer func() {
		if err := s.lease.Release(context.WithoutCancel(ctx), key, token); err != nil {
			s.logger.WarnContext(ctx, "failed to release person lease",
				"user_id", userID.String(),
				"error", err,
			)
		}
	}()
	return fn(ctx)
}
