// Package ports declares the collaborators the profile pipelines depend on.
package ports

import (
	"context"
	"time"

	"beneficiary/internal/profile/models"
	id "beneficiary/pkg/domain"
)

// DocumentLoader reads a person's stored documents in upload order.
// verifiedOnly restricts the result to documents whose upload verification
// succeeded.
type DocumentLoader interface {
	LoadDocuments(ctx context.Context, userID id.UserID, verifiedOnly bool) ([]models.Document, error)
}

// ProfileStore selects batch candidates and reads stored profiles.
// Error contract: LoadStoredProfile returns sentinel.ErrNotFound when the
// person has no user row.
type ProfileStore interface {
	PopulateCandidates(ctx context.Context, limit int) ([]id.UserID, error)
	ValidateCandidates(ctx context.Context, limit int) ([]id.UserID, error)
	LoadStoredProfile(ctx context.Context, userID id.UserID) (models.StoredProfile, error)
}

// ProfileWriter is the write surface available inside a unit of work.
// Error contract: writes to a missing user return sentinel.ErrNotFound.
type ProfileWriter interface {
	ResetVerification(ctx context.Context, userID id.UserID, at time.Time) error
	UpsertUserInfo(ctx context.Context, info models.UserInfo) error
	WriteUserProfile(ctx context.Context, outcome models.PopulateOutcome) error
	WriteValidation(ctx context.Context, userID id.UserID, outcome models.ValidationOutcome) error
}

// UnitOfWork runs fn atomically: either every write fn makes commits or
// none does.
type UnitOfWork interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, w ProfileWriter) error) error
}

// IdentityDirectory mirrors display names into the identity provider.
type IdentityDirectory interface {
	UpdateNames(ctx context.Context, userID id.UserID, firstName, lastName *string) error
}

// EventPublisher emits profile lifecycle events.
type EventPublisher interface {
	Publish(ctx context.Context, event models.ProfileEvent) error
}

// Lease grants exclusive processing of a key across service instances.
// Error contract: Acquire returns sentinel.ErrLeaseHeld when another holder
// owns the key.
type Lease interface {
	Acquire(ctx context.Context, key string) (token string, err error)
	Release(ctx context.Context, key, token string) error
}
