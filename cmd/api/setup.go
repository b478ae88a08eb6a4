package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"

	"github.com/wolfman30/chappy-widget-api/cmd/mainconfig"
	"github.com/wolfman30/chappy-widget-api/internal/api/router"
	"github.com/wolfman30/chappy-widget-api/internal/bootstrap"
	appconfig "github.com/wolfman30/chappy-widget-api/internal/config"
	"github.com/wolfman30/chappy-widget-api/internal/conversation"
	"github.com/wolfman30/chappy-widget-api/internal/observability/metrics"
	"github.com/wolfman30/chappy-widget-api/internal/profile"
	"github.com/wolfman30/chappy-widget-api/internal/subscription"
	"github.com/wolfman30/chappy-widget-api/internal/usage"
	"github.com/wolfman30/chappy-widget-api/internal/webchat"
	"github.com/wolfman30/chappy-widget-api/pkg/logging"
)

// app is the wired HTTP surface plus the resources it owns.
type app struct {
	Handler http.Handler
	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func buildApp(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*app, error) {
	a := &app{}
	checks := map[string]router.ReadinessCheck{}

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		a.closers = append(a.closers, func() { _ = redisClient.Close() })
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	metricsHandler, chatMetrics := setupChatMetrics()

	gateway, err := setupGateway(ctx, cfg, awsCfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	profiles, err := bootstrap.BuildProfileResolver(cfg, redisClient, awsCfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	subStore, pool, err := bootstrap.BuildSubscriptionStore(ctx, cfg, awsCfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	if pool != nil {
		a.closers = append(a.closers, pool.Close)
		checks["postgres"] = pool.Ping
	}

	counter := setupDemoCounter(redisClient)
	subs := subscription.NewService(subStore, usage.ResetHook(counter))

	eventStore, closeEvents, err := setupEventStore(ctx, cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	if closeEvents != nil {
		a.closers = append(a.closers, closeEvents)
	}
	tracker := usage.NewTracker(eventStore)

	sessions := setupSessionStore(ctx, cfg, redisClient, logger)
	engine := conversation.NewEngine(
		sessions,
		conversation.NewIntentClassifier(gateway),
		conversation.NewTurnHandler(gateway,
			conversation.WithReplyTemperature(float32(cfg.LLMTemperature)),
			conversation.WithMaxHistoryMessages(cfg.MaxHistoryMessages),
		),
		logger,
	)

	gate := usage.NewGate(subs, counter,
		usage.WithClientCountTrust(cfg.DemoTrustClientCount),
		usage.WithMetrics(chatMetrics),
	)
	chat := webchat.NewService(profiles, gate, engine, logger,
		webchat.WithTracker(tracker),
		webchat.WithMetrics(chatMetrics),
		webchat.WithDefaultBusiness(cfg.DefaultBusiness),
	)

	if cfg.AdminJWTSecret == "" {
		logger.Warn("ADMIN_JWT_SECRET not set; admin routes will reject every request")
	}

	a.Handler = router.New(&router.Config{
		Logger:              logger,
		ChatHandler:         webchat.NewHandler(chat, logger),
		ProfileHandler:      profile.NewHandler(profiles, logger),
		SubscriptionHandler: subscription.NewHandler(subs, logger),
		UsageHandler:        usage.NewHandler(tracker, counter, chatMetrics, logger),
		MetricsHandler:      metricsHandler,
		ReadinessChecks:     checks,
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
		WidgetAPIKeys:       cfg.WidgetAPIKeys,
		AdminAuthSecret:     cfg.AdminJWTSecret,
		ChatRateLimit:       cfg.ChatRateLimitPerMinute,
		ChatRateWindow:      time.Minute,
		APIRateLimit:        cfg.APIRateLimit,
		APIRateWindow:       cfg.APIRateWindow,
	})
	return a, nil
}

func setupChatMetrics() (http.Handler, *metrics.ChatMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	conversation.RegisterMetrics(reg)
	chatMetrics := metrics.NewChatMetrics(reg)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), chatMetrics
}

func setupGateway(ctx context.Context, cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) (*conversation.LLMGateway, error) {
	client, model, err := bootstrap.BuildLLMClient(ctx, cfg, awsCfg, logger)
	if err != nil {
		return nil, err
	}
	return bootstrap.BuildGateway(client, model, cfg, logger), nil
}

func setupDemoCounter(redisClient *redis.Client) usage.DemoCounter {
	if redisClient == nil {
		return usage.NewMemoryDemoCounter()
	}
	return usage.NewRedisDemoCounter(redisClient)
}

func setupSessionStore(ctx context.Context, cfg *appconfig.Config, redisClient *redis.Client, logger *logging.Logger) conversation.SessionStore {
	if redisClient != nil {
		logger.Info("using redis session store", "ttl", cfg.SessionTTL)
		return conversation.NewRedisSessionStore(redisClient, cfg.SessionTTL, otel.Tracer("chappy.internal.conversation.sessions"))
	}
	logger.Warn("REDIS_ADDR not set; sessions are held in memory")
	store := conversation.NewMemorySessionStore(cfg.SessionTTL)
	go store.Run(ctx, time.Minute)
	return store
}

// setupEventStore returns the SQL-backed usage store when DATABASE_URL is set.
func setupEventStore(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (usage.EventStore, func(), error) {
	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL not set; usage events are held in memory")
		return usage.NewMemoryEventStore(), nil, nil
	}
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("open usage database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping usage database: %w", err)
	}
	return usage.NewSQLEventStore(db), func() { _ = db.Close() }, nil
}
