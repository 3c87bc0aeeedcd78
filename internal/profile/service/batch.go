package service

import (
	"context"
	"errors"
	"fmt"

	"beneficiary/internal/profile/models"
	id "beneficiary/pkg/domain"
	dErrors "beneficiary/pkg/domain-errors"
)

// runBatch processes ids sequentially. Per-person failures are logged and
// joined into the returned error; they never stop the loop. Only context
// cancellation ends the batch early.
func (s *Service) runBatch(ctx context.Context, pipeline string, ids []id.UserID, run func(context.Context, id.UserID) error) (models.BatchReport, error) {
	report := models.BatchReport{Pipeline: pipeline, Picked: len(ids)}
	s.metrics.SetBatchSize(pipeline, len(ids))

	var errs []error
	for _, userID := range ids {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		err := run(ctx, userID)
		switch {
		case err == nil:
			report.Succeeded++
		case dErrors.HasCode(err, dErrors.CodeLocked):
			report.Skipped++
			s.logger.InfoContext(ctx, "person skipped, lease held",
				"pipeline", pipeline,
				"user_id", userID.String(),
			)
		default:
			report.Failed++
			errs = append(errs, fmt.Errorf("user %s: %w", userID, err))
			s.logger.ErrorContext(ctx, "person run failed",
				"pipeline", pipeline,
				"user_id", userID.String(),
				"error", err,
				"cause", errors.Unwrap(err),
			)
		}
	}

	s.logger.InfoContext(ctx, "batch finished",
		"pipeline", pipeline,
		"picked", report.Picked,
		"succeeded", report.Succeeded,
		"skipped", report.Skipped,
		"failed", report.Failed,
	)
	return report, errors.Join(errs...)
}
