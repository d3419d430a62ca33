package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/smallbiznis/stravalink/internal/adapter/strava"
	"github.com/smallbiznis/stravalink/internal/domain"
	"github.com/smallbiznis/stravalink/internal/repository"
)

// RefreshSkew is the safety buffer: a credential expiring inside this window
// is treated as stale and refreshed ahead of use.
const RefreshSkew = 5 * time.Minute

// CredentialService manages the stored credential lifecycle. It is the only
// component that talks to the provider's token-refresh endpoint.
type CredentialService struct {
	store  repository.CredentialStore
	client strava.Client
	logger *zap.Logger
	now    func() time.Time
}

func NewCredentialService(store repository.CredentialStore, client strava.Client, logger *zap.Logger) *CredentialService {
	if logger == nil {
		logger = zap.L()
	}
	return &CredentialService{store: store, client: client, logger: logger, now: time.Now}
}

// GetValid returns the credential for an owner, refreshing and persisting it
// first when stale. A failed refresh degrades to the stored (stale)
// credential rather than failing the read.
func (s *CredentialService) GetValid(ctx context.Context, ownerID string) (*domain.Credential, error) {
	cred, err := s.store.GetByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return s.ensureFresh(ctx, cred), nil
}

// GetValidByAthleteID is GetValid resolved through the athlete index.
func (s *CredentialService) GetValidByAthleteID(ctx context.Context, athleteID string) (*domain.Credential, error) {
	cred, err := s.store.GetByAthleteID(ctx, athleteID)
	if err != nil {
		return nil, err
	}
	return s.ensureFresh(ctx, cred), nil
}

func (s *CredentialService) ensureFresh(ctx context.Context, cred *domain.Credential) *domain.Credential {
	if !cred.Stale(s.now(), RefreshSkew) {
		return cred
	}

	s.logger.Info("access token stale, refreshing",
		zap.String("owner_id", cred.OwnerID),
		zap.Int64("expires_at", cred.ExpiresAt),
	)

	refreshed, err := s.Refresh(ctx, cred)
	if err != nil {
		s.logger.Warn("token refresh failed, returning stale credential",
			zap.String("owner_id", cred.OwnerID),
			zap.Error(err),
		)
		return cred
	}

	if err := s.store.Store(ctx, refreshed.OwnerID, *refreshed); err != nil {
		// The refreshed token is still usable for this read; only the
		// persisted copy is behind.
		s.logger.Error("persist refreshed credential failed",
			zap.String("owner_id", refreshed.OwnerID),
			zap.Error(err),
		)
	}
	return refreshed
}

// Refresh exchanges the stored refresh token for a new token triple. It never
// mutates its input and has no storage side effect; callers persist the
// result. The access/refresh/expiry triple is always replaced together.
func (s *CredentialService) Refresh(ctx context.Context, cred *domain.Credential) (*domain.Credential, error) {
	token, err := s.client.RefreshToken(ctx, cred.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("refresh token: %w", err)
	}
	if strings.TrimSpace(token.AccessToken) == "" {
		return nil, fmt.Errorf("refresh token: empty access token in response")
	}

	next := *cred
	next.AccessToken = token.AccessToken
	next.RefreshToken = token.RefreshToken
	next.ExpiresAt = token.ExpiresAt
	return &next, nil
}
