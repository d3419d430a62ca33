package main

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/smallbiznis/stravalink/internal/adapter/cache"
	"github.com/smallbiznis/stravalink/internal/adapter/discord"
	"github.com/smallbiznis/stravalink/internal/adapter/strava"
	"github.com/smallbiznis/stravalink/internal/bootstrap"
	"github.com/smallbiznis/stravalink/internal/config"
	httptransport "github.com/smallbiznis/stravalink/internal/http"
	"github.com/smallbiznis/stravalink/internal/http/handler"
	httpmiddleware "github.com/smallbiznis/stravalink/internal/http/middleware"
	"github.com/smallbiznis/stravalink/internal/repository"
	"github.com/smallbiznis/stravalink/internal/server"
	"github.com/smallbiznis/stravalink/internal/service"
	"github.com/smallbiznis/stravalink/internal/telemetry"
)

func main() {
	app := fx.New(
		fx.Provide(
			newConfig,
			newLogger,
			newTelemetry,
			newSnowflake,
			newCredentialStore,
			newDeduper,
			newStravaClient,
			newNotifier,
			newRateLimiter,
			service.NewCredentialService,
			newLinkService,
			newWebhookService,
			handler.NewLinkHandler,
			handler.NewWebhookHandler,
			newRouter,
			server.NewHTTPServer,
		),
		fx.Invoke(useTelemetry, bootstrap.EnsureSubscription, startHTTPServer),
	)

	app.Run()
}

func newConfig() (config.Config, error) {
	return config.Load()
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.Environment == "development" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}

func newTelemetry(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (*telemetry.Provider, error) {
	provider, err := telemetry.New(context.Background(), cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("telemetry init: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return provider.Shutdown(stopCtx)
		},
	})

	return provider, nil
}

func newSnowflake() (*snowflake.Node, error) {
	node, err := snowflake.NewNode(1)
	return node, err
}

// newCredentialStore selects the backend at startup: Postgres when a database
// URL is configured, the in-memory store otherwise. The lifecycle manager
// depends only on the interface; the decision lives here in process wiring.
func newCredentialStore(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (repository.CredentialStore, error) {
	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL not set, using in-memory credential store")
		return repository.NewMemoryCredentialRepo(), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	repo := repository.NewPostgresCredentialRepo(pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			pool.Close()
			return nil
		},
	})

	return repo, nil
}

// newDeduper mirrors the storage factory: Redis when configured, otherwise a
// per-process memory window.
func newDeduper(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (cache.Deduper, error) {
	if cfg.RedisAddr == "" {
		logger.Warn("REDIS_ADDR not set, using in-memory event dedupe")
		return cache.NewMemoryDeduper(), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return cache.NewRedisDeduper(client), nil
}

func newStravaClient(cfg config.Config) strava.Client {
	return strava.NewHTTPClient(cfg.StravaBaseURL, cfg.StravaClientID, cfg.StravaClientSecret, nil)
}

func newNotifier(cfg config.Config) discord.Notifier {
	return discord.NewWebhookNotifier(cfg.DiscordWebhookURL, nil)
}

func newRateLimiter(cfg config.Config) *httpmiddleware.RateLimiter {
	return httpmiddleware.NewRateLimiter(cfg.RateLimitRPM)
}

func newLinkService(store repository.CredentialStore, client strava.Client, cfg config.Config, logger *zap.Logger) *service.LinkService {
	return service.NewLinkService(store, client, cfg, logger)
}

func newWebhookService(
	creds *service.CredentialService,
	client strava.Client,
	notifier discord.Notifier,
	deduper cache.Deduper,
	node *snowflake.Node,
	cfg config.Config,
	logger *zap.Logger,
) *service.WebhookService {
	return service.NewWebhookService(creds, client, notifier, deduper, node, cfg.StravaVerifyToken, cfg.EventDedupeTTL, logger)
}

func newRouter(
	cfg config.Config,
	logger *zap.Logger,
	linkHandler *handler.LinkHandler,
	webhookHandler *handler.WebhookHandler,
	rateLimiter *httpmiddleware.RateLimiter,
) *gin.Engine {
	return httptransport.NewRouter(cfg, logger, linkHandler, webhookHandler, rateLimiter)
}

func startHTTPServer(lc fx.Lifecycle, srv *server.HTTPServer, cfg config.Config, logger *zap.Logger) {
	addr := ":" + cfg.HTTPPort
	var (
		cancel context.CancelFunc
		done   chan struct{}
	)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			runCtx, stop := context.WithCancel(context.Background())
			cancel = stop
			done = make(chan struct{})

			go func() {
				if err := srv.Run(runCtx, addr); err != nil {
					logger.Error("http server stopped", zap.Error(err))
				}
				close(done)
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			if cancel != nil {
				cancel()
			}
			if done == nil {
				return nil
			}
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}

func useTelemetry(*telemetry.Provider) {}
