package service

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/smallbiznis/stravalink/internal/adapter/strava"
	"github.com/smallbiznis/stravalink/internal/config"
	"github.com/smallbiznis/stravalink/internal/domain"
	"github.com/smallbiznis/stravalink/internal/repository"
	"github.com/smallbiznis/stravalink/internal/state"
)

// LinkService orchestrates the authorization handshake: it issues the signed
// state carried through the OAuth redirect and, on callback, verifies it,
// exchanges the code, and stores the resulting credential.
type LinkService struct {
	store  repository.CredentialStore
	client strava.Client
	cfg    config.Config
	logger *zap.Logger
}

func NewLinkService(store repository.CredentialStore, client strava.Client, cfg config.Config, logger *zap.Logger) *LinkService {
	if logger == nil {
		logger = zap.L()
	}
	return &LinkService{store: store, client: client, cfg: cfg, logger: logger}
}

// AuthorizeURL builds the provider authorization redirect for an owner
// identity. Missing client id, redirect URI, or signing secret is a
// configuration error, never a client error.
func (s *LinkService) AuthorizeURL(ownerID string) (string, error) {
	if strings.TrimSpace(ownerID) == "" {
		return "", fmt.Errorf("%w: owner id required", domain.ErrInvalidRequest)
	}
	if s.cfg.StravaClientID == "" || s.cfg.StravaRedirectURI == "" || s.cfg.StateSigningSecret == "" {
		return "", domain.ErrConfigMissing
	}

	signed := state.Sign(ownerID, s.cfg.StateSigningSecret)

	params := url.Values{}
	params.Set("client_id", s.cfg.StravaClientID)
	params.Set("response_type", "code")
	params.Set("redirect_uri", s.cfg.StravaRedirectURI)
	params.Set("scope", s.cfg.StravaScope)
	params.Set("state", signed)

	return s.cfg.StravaBaseURL + "/oauth/authorize?" + params.Encode(), nil
}

// HandleCallback verifies the signed state, exchanges the code, and upserts
// the credential under the identity recovered from the state token.
func (s *LinkService) HandleCallback(ctx context.Context, code, signedState string) (*domain.Credential, error) {
	if strings.TrimSpace(code) == "" || strings.TrimSpace(signedState) == "" {
		return nil, fmt.Errorf("%w: code and state required", domain.ErrInvalidRequest)
	}
	if s.cfg.StateSigningSecret == "" {
		return nil, domain.ErrConfigMissing
	}

	ownerID, err := state.Verify(signedState, s.cfg.StateSigningSecret)
	if err != nil {
		return nil, err
	}

	token, err := s.client.ExchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}
	if strings.TrimSpace(token.AccessToken) == "" {
		return nil, fmt.Errorf("exchange code: empty access token in response")
	}

	cred := domain.Credential{
		OwnerID:      ownerID,
		AthleteID:    strconv.FormatInt(token.Athlete.ID, 10),
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.ExpiresAt,
	}
	if err := s.store.Store(ctx, ownerID, cred); err != nil {
		return nil, fmt.Errorf("store credential: %w", err)
	}

	s.logger.Info("account linked",
		zap.String("owner_id", ownerID),
		zap.String("athlete_id", cred.AthleteID),
	)
	return &cred, nil
}
