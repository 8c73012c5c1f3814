package repositories

import (
	"context"

	"streamgate/internal/core/domain"
	"streamgate/internal/core/ports"
	"streamgate/internal/infrastructure/repositories/memory"
	redisrepo "streamgate/internal/infrastructure/repositories/redis"
	"streamgate/pkg/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RepositoryFactory creates the session registry and device binding
// store, backed by Redis when configured and process memory otherwise.
// An enabled but unreachable Redis is a fatal startup error: without
// the shared registry no correct admission decision is possible across
// instances.
type RepositoryFactory struct {
	useRedis    bool
	redisClient *redis.Client
	logger      *zap.SugaredLogger
}

func NewRepositoryFactory(cfg *config.Config, logger *zap.SugaredLogger) (*RepositoryFactory, error) {
	factory := &RepositoryFactory{
		useRedis: cfg.Redis.Enabled,
		logger:   logger,
	}

	if cfg.Redis.Enabled {
		client, err := redisrepo.NewRedisClient(
			cfg.Redis.Address,
			cfg.Redis.Password,
			cfg.Redis.DB,
			cfg.Redis.PoolSize,
			logger,
		)
		if err != nil {
			return nil, err
		}
		factory.redisClient = client
		logger.Info("using Redis repositories")
	} else {
		logger.Info("using memory repositories")
	}

	return factory, nil
}

func (f *RepositoryFactory) CreateSessionRepository() ports.SessionRepository {
	if f.useRedis {
		return redisrepo.NewRedisSessionRepository(f.redisClient)
	}
	return memory.NewMemorySessionRepository()
}

func (f *RepositoryFactory) CreateDeviceRepository() ports.DeviceBindingRepository {
	if f.useRedis {
		return redisrepo.NewRedisDeviceRepository(f.redisClient)
	}
	return memory.NewMemoryDeviceRepository()
}

// NewSubscriptionStore builds the in-process subscription snapshot
// store. Snapshots are pushed over the internal API by the billing
// integration; config supplies the defaults for omitted fields.
func NewSubscriptionStore(cfg *config.Config) *memory.MemorySubscriptionStore {
	return memory.NewMemorySubscriptionStore(
		cfg.DRM.MaxConcurrentStreams,
		cfg.DRM.DefaultAllowedRegions...,
	)
}

// NewVideoCatalog builds the tier catalog. Videos without an explicit
// tier entry are watchable on any subscription.
func NewVideoCatalog(cfg *config.Config) *memory.StaticVideoCatalog {
	return memory.NewStaticVideoCatalog(domain.SubscriptionFree)
}

// RedisClient exposes the shared client for components that need it
// directly, such as the sweep lock. Nil when running on memory.
func (f *RepositoryFactory) RedisClient() *redis.Client {
	return f.redisClient
}

// HealthCheck verifies the backing store is reachable. Memory-backed
// deployments are always healthy.
func (f *RepositoryFactory) HealthCheck(ctx context.Context) error {
	if f.redisClient != nil {
		return f.redisClient.Ping(ctx).Err()
	}
	return nil
}

// Close closes underlying connections
func (f *RepositoryFactory) Close() error {
	if f.redisClient != nil {
		return redisrepo.CloseRedisClient(f.redisClient)
	}
	return nil
}
