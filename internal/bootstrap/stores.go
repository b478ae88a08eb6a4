package bootstrap

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/chappy-widget-api/internal/config"
	"github.com/wolfman30/chappy-widget-api/internal/profile"
	"github.com/wolfman30/chappy-widget-api/internal/subscription"
	"github.com/wolfman30/chappy-widget-api/pkg/logging"
)

// Storage backends accepted by PROFILE_BACKEND and SUBSCRIPTION_BACKEND.
const (
	BackendFile     = "file"
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendS3       = "s3"
	BackendPostgres = "postgres"
	BackendDynamo   = "dynamodb"
)

// BuildProfileResolver selects the profile store named by cfg.ProfileBackend.
func BuildProfileResolver(cfg *appconfig.Config, redisClient *redis.Client, awsCfg aws.Config) (profile.Resolver, error) {
	switch cfg.ProfileBackend {
	case BackendFile, "":
		return profile.NewFileStore(cfg.InternalProfilesDir, cfg.ProfilesDir), nil
	case BackendRedis:
		if redisClient == nil {
			return nil, fmt.Errorf("bootstrap: profile backend redis requires REDIS_ADDR")
		}
		return profile.NewRedisStore(redisClient), nil
	case BackendS3:
		if cfg.ProfilesBucket == "" {
			return nil, fmt.Errorf("bootstrap: profile backend s3 requires PROFILES_BUCKET")
		}
		client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.UsePathStyle = cfg.AWSEndpointOverride != ""
		})
		return profile.NewS3Store(client, cfg.ProfilesBucket, cfg.ProfilesPrefix), nil
	default:
		return nil, fmt.Errorf("bootstrap: unknown profile backend %q", cfg.ProfileBackend)
	}
}

// BuildSubscriptionStore selects the subscription store named by
// cfg.SubscriptionBackend. The returned pool is non-nil for the postgres
// backend and must be closed by the caller.
func BuildSubscriptionStore(ctx context.Context, cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) (subscription.Store, *pgxpool.Pool, error) {
	if logger == nil {
		logger = logging.Default()
	}
	switch cfg.SubscriptionBackend {
	case BackendMemory, "":
		logger.Warn("subscriptions are held in memory and reset on restart")
		return subscription.NewMemoryStore(), nil, nil
	case BackendPostgres:
		pool, err := ConnectPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return subscription.NewPostgresStore(pool), pool, nil
	case BackendDynamo:
		return subscription.NewDynamoStore(dynamodb.NewFromConfig(awsCfg), cfg.SubscriptionsTable), nil, nil
	default:
		return nil, nil, fmt.Errorf("bootstrap: unknown subscription backend %q", cfg.SubscriptionBackend)
	}
}

// ConnectPostgresPool opens and pings a pgx pool.
func ConnectPostgresPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("bootstrap: DATABASE_URL is required")
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("bootstrap: ping postgres: %w", err)
	}
	return pool, nil
}
