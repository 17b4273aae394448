package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/review-xmpp-notifier/internal/adapters/config"
	"gitlab.com/timkado/api/review-xmpp-notifier/internal/adapters/logger"
	appnats "gitlab.com/timkado/api/review-xmpp-notifier/internal/adapters/nats"
	appredis "gitlab.com/timkado/api/review-xmpp-notifier/internal/adapters/redis"
	"gitlab.com/timkado/api/review-xmpp-notifier/internal/adapters/site"
	"gitlab.com/timkado/api/review-xmpp-notifier/internal/adapters/xmpp"
	"gitlab.com/timkado/api/review-xmpp-notifier/internal/application"
	"gitlab.com/timkado/api/review-xmpp-notifier/internal/domain"
)

// InitialZapLoggerProvider provides the *zap.Logger used while configuration
// is being loaded, before the configured logger exists.
func InitialZapLoggerProvider() (*zap.Logger, func(), error) {
	l, err := zap.NewProduction()
	if err != nil {
		l, err = zap.NewDevelopment()
		if err != nil {
			l = zap.NewExample()
			fmt.Fprintf(os.Stderr, "Failed to create initial zap logger, falling back to example logger: %v\n", err)
		}
	}
	cleanup := func() {
		_ = l.Sync() // stderr/stdout sync returns EINVAL on some platforms
	}
	return l, cleanup, nil
}

// App is the running service: the event consumer plus an operations HTTP server.
type App struct {
	configProvider config.Provider
	logger         domain.Logger
	httpServeMux   *http.ServeMux
	httpServer     *http.Server
	consumer       *appnats.ConsumerAdapter
	eventHandler   *application.EventHandler
	redisClient    *redis.Client
}

// NewApp is the constructor for App, also for Wire.
func NewApp(
	cfgProvider config.Provider,
	appLogger domain.Logger,
	mux *http.ServeMux,
	server *http.Server,
	consumer *appnats.ConsumerAdapter,
	eventHandler *application.EventHandler,
	redisClient *redis.Client,
) (*App, func(), error) {
	app := &App{
		configProvider: cfgProvider,
		logger:         appLogger,
		httpServeMux:   mux,
		httpServer:     server,
		consumer:       consumer,
		eventHandler:   eventHandler,
		redisClient:    redisClient,
	}
	cleanup := func() {
		app.logger.Info(context.Background(), "Running app cleanup...")
		if app.consumer != nil {
			if err := app.consumer.Stop(); err != nil {
				app.logger.Error(context.Background(), "Error stopping review event consumer during cleanup", "error", err.Error())
			}
		}
	}
	return app, cleanup, nil
}

// ConfigProvider provides the application configuration.
func ConfigProvider(appCtx context.Context, logger *zap.Logger) (config.Provider, error) {
	return config.NewViperProvider(appCtx, logger)
}

// LoggerProvider provides the application logger.
func LoggerProvider(cfgProvider config.Provider) (domain.Logger, error) {
	return logger.NewZapAdapter(cfgProvider, cfgProvider.Get().App.ServiceName)
}

// HTTPServeMuxProvider provides the operations HTTP multiplexer.
func HTTPServeMuxProvider() *http.ServeMux {
	return http.NewServeMux()
}

// HTTPGracefulServerProvider provides the operations HTTP server.
func HTTPGracefulServerProvider(cfgProvider config.Provider, mux *http.ServeMux) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", cfgProvider.Get().Server.HTTPPort),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// RedisClientProvider provides a Redis client and a cleanup function.
func RedisClientProvider(cfgProvider config.Provider, appLogger domain.Logger) (*redis.Client, func(), error) {
	redisCfg := cfgProvider.Get().Redis
	client := redis.NewClient(&redis.Options{
		Addr:     redisCfg.Address,
		Password: redisCfg.Password,
		DB:       redisCfg.DB,
	})
	cleanup := func() {
		_ = client.Close()
		appLogger.Info(context.Background(), "Redis connection closed")
	}
	// Dedup fails open, so an unreachable Redis degrades the service instead of
	// stopping it. go-redis reconnects on the next command.
	if err := client.Ping(context.Background()).Err(); err != nil {
		appLogger.Warn(context.Background(), "Redis unreachable at startup; duplicate suppression disabled until it recovers",
			"error", err.Error(), "address", redisCfg.Address)
		return client, cleanup, nil
	}
	appLogger.Info(context.Background(), "Successfully connected to Redis", "address", redisCfg.Address)
	return client, cleanup, nil
}

// EventDeduplicatorProvider provides the Redis-backed event deduplicator.
// Each process gets a random owner id so shared keys show who handled an event.
func EventDeduplicatorProvider(redisClient *redis.Client, logger domain.Logger) domain.EventDeduplicator {
	return appredis.NewEventDeduplicatorAdapter(redisClient, logger, uuid.NewString())
}

// BaseURLProviderProvider provides the site base URL used in message links.
func BaseURLProviderProvider(cfgProvider config.Provider) domain.BaseURLProvider {
	return site.NewBaseURLProvider(cfgProvider)
}

// MessengerProvider provides the XMPP dispatcher.
func MessengerProvider(cfgProvider config.Provider, logger domain.Logger) domain.Messenger {
	return xmpp.NewDispatcher(cfgProvider, logger)
}

// NotifierProvider provides the Notifier.
func NotifierProvider(logger domain.Logger, messenger domain.Messenger, baseURL domain.BaseURLProvider) *application.Notifier {
	return application.NewNotifier(logger, messenger, baseURL)
}

// EventHandlerProvider provides the EventHandler.
func EventHandlerProvider(cfgProvider config.Provider, logger domain.Logger, notifier *application.Notifier, dedup domain.EventDeduplicator) *application.EventHandler {
	ttl := time.Duration(cfgProvider.Get().App.DedupTTLSeconds) * time.Second
	return application.NewEventHandler(logger, notifier, dedup, ttl)
}

// NatsConsumerAdapterProvider provides the NATS review event consumer.
func NatsConsumerAdapterProvider(ctx context.Context, cfgProvider config.Provider, appLogger domain.Logger) (*appnats.ConsumerAdapter, func(), error) {
	return appnats.NewConsumerAdapter(ctx, cfgProvider, appLogger)
}

// ProviderSet is the Wire provider set for the entire application.
var ProviderSet = wire.NewSet(
	InitialZapLoggerProvider,
	ConfigProvider,
	LoggerProvider,
	HTTPServeMuxProvider,
	HTTPGracefulServerProvider,

	// Infrastructure adapters
	RedisClientProvider,
	EventDeduplicatorProvider,
	NatsConsumerAdapterProvider,
	BaseURLProviderProvider,
	MessengerProvider,

	// Application services
	NotifierProvider,
	EventHandlerProvider,
	NewApp,
)
