package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/smallbiznis/stravalink/internal/adapter/cache"
	"github.com/smallbiznis/stravalink/internal/domain"
	"github.com/smallbiznis/stravalink/internal/repository"
)

type webhookTestHarness struct {
	service  *WebhookService
	store    *repository.MemoryCredentialRepo
	client   *fakeStravaClient
	notifier *fakeNotifier
}

func newWebhookTestHarness(t *testing.T) *webhookTestHarness {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	store := repository.NewMemoryCredentialRepo()
	client := &fakeStravaClient{}
	notifier := &fakeNotifier{}
	creds := NewCredentialService(store, client, zap.NewNop())
	svc := NewWebhookService(creds, client, notifier, cache.NewMemoryDeduper(), node, "verify-token", time.Hour, zap.NewNop())

	return &webhookTestHarness{service: svc, store: store, client: client, notifier: notifier}
}

func (h *webhookTestHarness) linkAthlete(t *testing.T) {
	t.Helper()
	require.NoError(t, h.store.Store(context.Background(), "u1", domain.Credential{
		AthleteID:    "777",
		AccessToken:  "access",
		RefreshToken: "refresh",
		ExpiresAt:    time.Now().Add(time.Hour).Unix(),
	}))
}

func createActivityEvent() *domain.WebhookEvent {
	return &domain.WebhookEvent{
		AspectType:     "create",
		ObjectType:     "activity",
		ObjectID:       555,
		OwnerID:        777,
		SubscriptionID: 9,
	}
}

func TestVerifyHandshake(t *testing.T) {
	h := newWebhookTestHarness(t)

	echoed, ok := h.service.VerifyHandshake("subscribe", "verify-token", "xyz")
	require.True(t, ok)
	require.Equal(t, "xyz", echoed)

	_, ok = h.service.VerifyHandshake("subscribe", "wrong-token", "xyz")
	require.False(t, ok)

	_, ok = h.service.VerifyHandshake("unsubscribe", "verify-token", "xyz")
	require.False(t, ok)
}

func TestVerifyHandshakeUnconfiguredToken(t *testing.T) {
	h := newWebhookTestHarness(t)
	h.service.verifyToken = ""

	// Never accept when no token is configured, even an empty match.
	_, ok := h.service.VerifyHandshake("subscribe", "", "xyz")
	require.False(t, ok)
}

func TestParseEvent(t *testing.T) {
	h := newWebhookTestHarness(t)

	event, err := h.service.ParseEvent([]byte(`{
		"aspect_type": "create",
		"event_time": 1700000000,
		"object_id": 555,
		"object_type": "activity",
		"owner_id": 777,
		"subscription_id": 9
	}`))
	require.NoError(t, err)
	require.Equal(t, "create", event.AspectType)
	require.Equal(t, int64(555), event.ObjectID)
	require.Equal(t, int64(777), event.OwnerID)
}

func TestParseEventInvalid(t *testing.T) {
	h := newWebhookTestHarness(t)

	for _, raw := range []string{"", "   ", "null", "not json", `"a string"`, "42"} {
		_, err := h.service.ParseEvent([]byte(raw))
		require.ErrorIs(t, err, domain.ErrInvalidEvent, "payload %q", raw)
	}
}

func TestDispatchIgnoresOtherAspects(t *testing.T) {
	h := newWebhookTestHarness(t)
	h.linkAthlete(t)

	for _, ev := range []*domain.WebhookEvent{
		{AspectType: "update", ObjectType: "activity", ObjectID: 555, OwnerID: 777},
		{AspectType: "delete", ObjectType: "activity", ObjectID: 555, OwnerID: 777},
		{AspectType: "create", ObjectType: "athlete", ObjectID: 777, OwnerID: 777},
	} {
		h.service.Dispatch(context.Background(), ev)
	}

	require.Zero(t, h.client.activityN, "non create/activity events must not fetch detail")
	require.Zero(t, h.notifier.sends)
}

func TestDispatchDropsUnlinkedAthlete(t *testing.T) {
	h := newWebhookTestHarness(t)

	h.service.Dispatch(context.Background(), createActivityEvent())

	require.Zero(t, h.client.activityN)
	require.Zero(t, h.notifier.sends)
}

func TestDispatchSendsNotification(t *testing.T) {
	h := newWebhookTestHarness(t)
	h.linkAthlete(t)

	name := "Morning Ride"
	h.client.activity = &domain.Activity{Name: &name}

	h.service.Dispatch(context.Background(), createActivityEvent())

	require.Equal(t, 1, h.client.activityN)
	require.Equal(t, 1, h.notifier.sends)
	require.Equal(t, "u1", h.notifier.ownerID)
	require.Equal(t, "Morning Ride", *h.notifier.activity.Name)
}

func TestDispatchSwallowsFetchFailure(t *testing.T) {
	h := newWebhookTestHarness(t)
	h.linkAthlete(t)
	h.client.activityErr = context.DeadlineExceeded

	h.service.Dispatch(context.Background(), createActivityEvent())

	require.Zero(t, h.notifier.sends)
}

func TestDispatchSwallowsNotifyFailure(t *testing.T) {
	h := newWebhookTestHarness(t)
	h.linkAthlete(t)
	h.notifier.sendErr = context.DeadlineExceeded

	// Must not panic or propagate.
	h.service.Dispatch(context.Background(), createActivityEvent())
	require.Equal(t, 1, h.notifier.sends)
}

func TestDispatchDeduplicatesRedelivery(t *testing.T) {
	h := newWebhookTestHarness(t)
	h.linkAthlete(t)

	h.service.Dispatch(context.Background(), createActivityEvent())
	h.service.Dispatch(context.Background(), createActivityEvent())

	require.Equal(t, 1, h.client.activityN, "redelivery inside the TTL must be skipped")
	require.Equal(t, 1, h.notifier.sends)
}

func TestDispatchWithoutDeduper(t *testing.T) {
	h := newWebhookTestHarness(t)
	h.linkAthlete(t)
	h.service.deduper = nil

	h.service.Dispatch(context.Background(), createActivityEvent())
	require.Equal(t, 1, h.notifier.sends)
}

func TestDispatchAsyncDoesNotPanic(t *testing.T) {
	h := newWebhookTestHarness(t)
	h.linkAthlete(t)

	done := make(chan struct{})
	h.client.activity = &domain.Activity{}
	h.notifier.sendErr = nil

	h.service.DispatchAsync(createActivityEvent())

	go func() {
		for {
			h.notifier.mu.Lock()
			sends := h.notifier.sends
			h.notifier.mu.Unlock()
			if sends > 0 {
				close(done)
				return
			}
			time.Sleep(5 * time.Millisecond)
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("async dispatch did not complete")
	}
}
