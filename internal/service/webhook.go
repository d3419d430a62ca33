package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"

	"github.com/smallbiznis/stravalink/internal/adapter/cache"
	"github.com/smallbiznis/stravalink/internal/adapter/discord"
	"github.com/smallbiznis/stravalink/internal/adapter/strava"
	"github.com/smallbiznis/stravalink/internal/domain"
)

// WebhookService is the trust gate and dispatcher for inbound Strava events.
type WebhookService struct {
	creds       *CredentialService
	client      strava.Client
	notifier    discord.Notifier
	deduper     cache.Deduper
	node        *snowflake.Node
	verifyToken string
	dedupeTTL   time.Duration
	logger      *zap.Logger

	dispatchTimeout time.Duration
}

func NewWebhookService(
	creds *CredentialService,
	client strava.Client,
	notifier discord.Notifier,
	deduper cache.Deduper,
	node *snowflake.Node,
	verifyToken string,
	dedupeTTL time.Duration,
	logger *zap.Logger,
) *WebhookService {
	if logger == nil {
		logger = zap.L()
	}
	return &WebhookService{
		creds:           creds,
		client:          client,
		notifier:        notifier,
		deduper:         deduper,
		node:            node,
		verifyToken:     verifyToken,
		dedupeTTL:       dedupeTTL,
		logger:          logger,
		dispatchTimeout: 30 * time.Second,
	}
}

// VerifyHandshake validates the one-time subscription challenge. It accepts
// iff the mode is "subscribe" and the provided token matches the configured
// one, and returns the challenge to echo back verbatim.
func (s *WebhookService) VerifyHandshake(mode, providedToken, challenge string) (string, bool) {
	if s.verifyToken == "" {
		return "", false
	}
	if mode != "subscribe" || providedToken != s.verifyToken {
		return "", false
	}
	return challenge, true
}

// ParseEvent deserializes a raw webhook payload. Empty or structurally
// malformed bodies yield ErrInvalidEvent; no semantic filtering happens here.
func (s *WebhookService) ParseEvent(raw []byte) (*domain.WebhookEvent, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, domain.ErrInvalidEvent
	}
	var event domain.WebhookEvent
	if err := json.Unmarshal(trimmed, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidEvent, err)
	}
	return &event, nil
}

// DispatchAsync runs Dispatch on a detached goroutine so the webhook handler
// can acknowledge inside the provider's response deadline. The goroutine
// carries its own error boundary: nothing escapes back to the response path,
// and failures are terminal-at-point.
func (s *WebhookService) DispatchAsync(event *domain.WebhookEvent) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("webhook dispatch panic",
					zap.Int64("object_id", event.ObjectID),
					zap.Any("panic", r),
				)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), s.dispatchTimeout)
		defer cancel()
		s.Dispatch(ctx, event)
	}()
}

// Dispatch relays one event: filter to created activities, resolve the owning
// identity via the athlete index, fetch detail, and notify. Every failure is
// logged and swallowed; the delivery was already acknowledged, and failing
// here would only trigger duplicate redeliveries from the provider.
func (s *WebhookService) Dispatch(ctx context.Context, event *domain.WebhookEvent) {
	if event.AspectType != "create" || event.ObjectType != "activity" {
		return
	}

	dispatchID := s.node.Generate().String()
	logger := s.logger.With(
		zap.String("dispatch_id", dispatchID),
		zap.Int64("activity_id", event.ObjectID),
		zap.Int64("athlete_id", event.OwnerID),
	)

	if s.isDuplicate(ctx, event, logger) {
		return
	}

	athleteID := fmt.Sprintf("%d", event.OwnerID)
	cred, err := s.creds.GetValidByAthleteID(ctx, athleteID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Most webhook traffic is for unlinked athletes; not an error.
			logger.Debug("no linked identity for athlete")
			return
		}
		logger.Error("credential lookup failed", zap.Error(err))
		return
	}

	activity, err := s.client.FetchActivity(ctx, cred.AccessToken, event.ObjectID)
	if err != nil {
		logger.Warn("activity detail fetch failed", zap.Error(err))
		return
	}

	if err := s.notifier.SendActivity(ctx, cred.OwnerID, event.ObjectID, activity); err != nil {
		logger.Warn("notification send failed", zap.Error(err))
		return
	}

	logger.Info("activity notification sent", zap.String("owner_id", cred.OwnerID))
}

// isDuplicate consults the dedupe cache. Cache errors fail open: a broken
// cache degrades to at-least-once, never to dropped first deliveries.
func (s *WebhookService) isDuplicate(ctx context.Context, event *domain.WebhookEvent, logger *zap.Logger) bool {
	if s.deduper == nil {
		return false
	}
	key := fmt.Sprintf("%d:%s:%d", event.ObjectID, event.AspectType, event.OwnerID)
	seen, err := s.deduper.Seen(ctx, key, s.dedupeTTL)
	if err != nil {
		logger.Warn("dedupe check failed, continuing", zap.Error(err))
		return false
	}
	if seen {
		logger.Info("duplicate delivery skipped")
	}
	return seen
}
