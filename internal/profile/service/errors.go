package service

import (
	"context"
	"errors"

	"beneficiary/internal/profile/metrics"
	"beneficiary/internal/sentinel"
	dErrors "beneficiary/pkg/domain-errors"
)

// translateError maps store and collaborator errors onto domain codes. An
// error that already carries a code keeps it.
func translateError(err error, msg string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, msg)
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, msg)
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, msg)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return dErrors.Wrap(err, dErrors.CodeTimeout, msg)
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}

// runOutcome is the metric label for a finished person run.
func runOutcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case dErrors.HasCode(err, dErrors.CodeLocked):
		return metrics.OutcomeSkipped
	default:
		return metrics.OutcomeFailed
	}
}
