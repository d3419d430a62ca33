package service

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/smallbiznis/stravalink/internal/config"
	"github.com/smallbiznis/stravalink/internal/domain"
	"github.com/smallbiznis/stravalink/internal/repository"
	"github.com/smallbiznis/stravalink/internal/state"
)

func linkTestConfig() config.Config {
	return config.Config{
		StravaBaseURL:      "https://www.strava.com",
		StravaClientID:     "client-id",
		StravaClientSecret: "client-secret",
		StravaRedirectURI:  "https://relay.example.com/strava/callback",
		StravaScope:        "activity:read_all",
		StateSigningSecret: "s3cr3t",
	}
}

func TestAuthorizeURL(t *testing.T) {
	svc := NewLinkService(repository.NewMemoryCredentialRepo(), &fakeStravaClient{}, linkTestConfig(), zap.NewNop())

	authURL, err := svc.AuthorizeURL("u42")
	require.NoError(t, err)

	parsed, err := url.Parse(authURL)
	require.NoError(t, err)
	require.Equal(t, "www.strava.com", parsed.Host)
	require.Equal(t, "/oauth/authorize", parsed.Path)

	q := parsed.Query()
	require.Equal(t, "client-id", q.Get("client_id"))
	require.Equal(t, "code", q.Get("response_type"))
	require.Equal(t, "https://relay.example.com/strava/callback", q.Get("redirect_uri"))
	require.Equal(t, "activity:read_all", q.Get("scope"))

	ownerID, err := state.Verify(q.Get("state"), "s3cr3t")
	require.NoError(t, err)
	require.Equal(t, "u42", ownerID)
	require.True(t, strings.HasPrefix(q.Get("state"), "u42:"))
}

func TestAuthorizeURLMissingConfig(t *testing.T) {
	cfg := linkTestConfig()
	cfg.StateSigningSecret = ""
	svc := NewLinkService(repository.NewMemoryCredentialRepo(), &fakeStravaClient{}, cfg, zap.NewNop())

	_, err := svc.AuthorizeURL("u42")
	require.ErrorIs(t, err, domain.ErrConfigMissing)
}

func TestAuthorizeURLMissingOwner(t *testing.T) {
	svc := NewLinkService(repository.NewMemoryCredentialRepo(), &fakeStravaClient{}, linkTestConfig(), zap.NewNop())

	_, err := svc.AuthorizeURL("  ")
	require.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestHandleCallbackStoresCredential(t *testing.T) {
	store := repository.NewMemoryCredentialRepo()
	expiry := time.Now().Add(6 * time.Hour).Unix()
	client := &fakeStravaClient{
		exchangeResp: &domain.TokenResponse{
			AccessToken:  "access",
			RefreshToken: "refresh",
			ExpiresAt:    expiry,
			Athlete:      domain.Athlete{ID: 777},
		},
	}
	svc := NewLinkService(store, client, linkTestConfig(), zap.NewNop())

	signed := state.Sign("u42", "s3cr3t")
	cred, err := svc.HandleCallback(context.Background(), "auth-code", signed)
	require.NoError(t, err)
	require.Equal(t, "u42", cred.OwnerID)
	require.Equal(t, "777", cred.AthleteID)

	stored, err := store.GetByAthleteID(context.Background(), "777")
	require.NoError(t, err)
	require.Equal(t, "u42", stored.OwnerID)
	require.Equal(t, "access", stored.AccessToken)
	require.Equal(t, expiry, stored.ExpiresAt)
}

func TestHandleCallbackInvalidState(t *testing.T) {
	client := &fakeStravaClient{}
	svc := NewLinkService(repository.NewMemoryCredentialRepo(), client, linkTestConfig(), zap.NewNop())

	_, err := svc.HandleCallback(context.Background(), "auth-code", "u42:forged-signature")
	require.ErrorIs(t, err, domain.ErrInvalidState)
	require.Zero(t, client.exchangeN, "invalid state must not reach the token endpoint")
}

func TestHandleCallbackMissingParams(t *testing.T) {
	svc := NewLinkService(repository.NewMemoryCredentialRepo(), &fakeStravaClient{}, linkTestConfig(), zap.NewNop())

	_, err := svc.HandleCallback(context.Background(), "", "some-state")
	require.ErrorIs(t, err, domain.ErrInvalidRequest)

	_, err = svc.HandleCallback(context.Background(), "code", "")
	require.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestHandleCallbackMissingSecret(t *testing.T) {
	cfg := linkTestConfig()
	cfg.StateSigningSecret = ""
	svc := NewLinkService(repository.NewMemoryCredentialRepo(), &fakeStravaClient{}, cfg, zap.NewNop())

	_, err := svc.HandleCallback(context.Background(), "code", "u42:sig")
	require.ErrorIs(t, err, domain.ErrConfigMissing)
}
