package service

import (
	"context"
	"errors"
	"sync"

	"github.com/smallbiznis/stravalink/internal/adapter/strava"
	"github.com/smallbiznis/stravalink/internal/domain"
	"github.com/smallbiznis/stravalink/internal/repository"
)

// ---- fakes shared by the service tests ----

type fakeStravaClient struct {
	mu sync.Mutex

	exchangeResp *domain.TokenResponse
	exchangeErr  error
	exchangeN    int

	refreshResp *domain.TokenResponse
	refreshErr  error
	refreshN    int

	activity    *domain.Activity
	activityErr error
	activityN   int

	subs      []strava.Subscription
	subsErr   error
	createdN  int
	createErr error
}

var _ strava.Client = (*fakeStravaClient)(nil)

func (f *fakeStravaClient) ExchangeCode(context.Context, string) (*domain.TokenResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exchangeN++
	return f.exchangeResp, f.exchangeErr
}

func (f *fakeStravaClient) RefreshToken(context.Context, string) (*domain.TokenResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshN++
	return f.refreshResp, f.refreshErr
}

func (f *fakeStravaClient) FetchActivity(context.Context, string, int64) (*domain.Activity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.activityN++
	return f.activity, f.activityErr
}

func (f *fakeStravaClient) ListSubscriptions(context.Context) ([]strava.Subscription, error) {
	return f.subs, f.subsErr
}

func (f *fakeStravaClient) CreateSubscription(context.Context, string, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createdN++
	return f.createErr
}

type fakeNotifier struct {
	mu       sync.Mutex
	sendErr  error
	sends    int
	ownerID  string
	activity *domain.Activity
}

func (f *fakeNotifier) SendActivity(_ context.Context, ownerID string, _ int64, activity *domain.Activity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends++
	f.ownerID = ownerID
	f.activity = activity
	return f.sendErr
}

// failingStore wraps a CredentialStore and fails writes on demand.
type failingStore struct {
	repository.CredentialStore
	failWrites bool
	writes     int
}

func (s *failingStore) Store(ctx context.Context, ownerID string, cred domain.Credential) error {
	s.writes++
	if s.failWrites {
		return errors.New("backend unavailable")
	}
	return s.CredentialStore.Store(ctx, ownerID, cred)
}
