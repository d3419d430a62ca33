package repository

import (
	"context"

	"github.com/smallbiznis/stravalink/internal/domain"
)

// CredentialStore persists linked credentials keyed by owner identity with a
// secondary lookup by Strava athlete id.
//
// Store upserts: it forces cred.OwnerID = ownerID and cred.UpdatedAt = now
// before persisting, regardless of what the caller supplied, and keeps the
// athlete→owner mapping current (last writer wins). GetByAthleteID resolves
// through that mapping in a single backend lookup. Both getters return
// domain.ErrNotFound for a missing credential; any other error is a
// transient backend failure.
type CredentialStore interface {
	Store(ctx context.Context, ownerID string, cred domain.Credential) error
	GetByOwner(ctx context.Context, ownerID string) (*domain.Credential, error)
	GetByAthleteID(ctx context.Context, athleteID string) (*domain.Credential, error)
}
