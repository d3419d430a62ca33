package bootstrap

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/smallbiznis/stravalink/internal/adapter/strava"
	"github.com/smallbiznis/stravalink/internal/config"
)

// EnsureSubscription registers the Strava push subscription at startup when a
// callback URL and verify token are configured. Failures are logged, not
// fatal: the service still serves linking and handshake traffic, and the
// subscription can be retried on the next start.
func EnsureSubscription(lc fx.Lifecycle, cfg config.Config, client strava.Client, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ensureSubscription(ctx, cfg, client, logger)
			return nil
		},
	})
}

func ensureSubscription(ctx context.Context, cfg config.Config, client strava.Client, logger *zap.Logger) {
	if cfg.WebhookCallbackURL == "" || cfg.StravaVerifyToken == "" {
		logger.Info("webhook subscription bootstrap skipped: callback url or verify token not configured")
		return
	}

	subs, err := client.ListSubscriptions(ctx)
	if err != nil {
		logger.Warn("list push subscriptions failed", zap.Error(err))
		return
	}

	for _, sub := range subs {
		if sub.CallbackURL == cfg.WebhookCallbackURL {
			logger.Info("push subscription already registered",
				zap.Int64("subscription_id", sub.ID),
			)
			return
		}
	}

	if err := client.CreateSubscription(ctx, cfg.WebhookCallbackURL, cfg.StravaVerifyToken); err != nil {
		logger.Warn("create push subscription failed", zap.Error(err))
		return
	}

	logger.Info("push subscription registered",
		zap.String("callback_url", cfg.WebhookCallbackURL),
	)
}
