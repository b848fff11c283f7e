// Package container is the composition root shared by the binaries. It builds
// the user repository stack from config and hands out the pieces explicitly;
// nothing here is global.
package container

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-user-service/config"
	"github.com/oksasatya/go-ddd-user-service/internal/application"
	"github.com/oksasatya/go-ddd-user-service/internal/domain/repository"
	"github.com/oksasatya/go-ddd-user-service/internal/infrastructure/elasticsearch"
	"github.com/oksasatya/go-ddd-user-service/internal/infrastructure/memory"
	pginfra "github.com/oksasatya/go-ddd-user-service/internal/infrastructure/postgres"
	"github.com/oksasatya/go-ddd-user-service/internal/infrastructure/rabbitmq"
	redisinfra "github.com/oksasatya/go-ddd-user-service/internal/infrastructure/redis"
	"github.com/oksasatya/go-ddd-user-service/pkg/helpers"
)

type Container struct {
	Config *config.Config
	Logger *logrus.Logger

	Pool      *pgxpool.Pool            // nil with the memory driver
	Redis     *redis.Client            // nil when REDIS_ADDR is empty
	Publisher *helpers.RabbitPublisher // nil when events are off
	Index     *elasticsearch.UserIndex // nil when no ES address is set

	Repo    repository.UserRepository
	Service *application.Service

	closers []func()
}

// Options switch optional parts of the stack off for binaries that do not
// need them.
type Options struct {
	DisableEvents bool
	DisableCache  bool
}

// New wires the repository chain: storage, then the Redis cache, then event
// publishing, then the use-case service on top. Storage failures are fatal.
// Broker failures only degrade the stack. While Redis is down, cached reads
// and rate limits fail open but user writes are refused, since they cannot
// invalidate the cache shared with other instances.
func New(ctx context.Context, cfg *config.Config, logger *logrus.Logger, opts Options) (*Container, error) {
	c := &Container{Config: cfg, Logger: logger}

	base, err := c.storage(ctx)
	if err != nil {
		c.Close()
		return nil, err
	}
	repo := base

	if cfg.RedisAddr != "" {
		c.Redis = helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		c.closers = append(c.closers, func() { _ = c.Redis.Close() })
		if err := c.Redis.Ping(ctx).Err(); err != nil {
			logger.WithError(err).Warn("redis unreachable; reads and rate limits fail open, user writes fail until it recovers")
		}
		if !opts.DisableCache {
			repo = redisinfra.NewCachedUserRepository(repo, c.Redis, cfg.UserCacheTTL, logger)
		}
	}

	if cfg.RabbitMQURL != "" && !opts.DisableEvents {
		pub, err := helpers.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQUserEventsQueue)
		if err != nil {
			logger.WithError(err).Warn("rabbitmq unavailable; user events will not be published")
		} else {
			c.Publisher = pub
			c.closers = append(c.closers, pub.Close)
			repo = rabbitmq.NewEventedUserRepository(repo, pub, logger)
		}
	}

	if addrs := cfg.ESAddrs(); len(addrs) > 0 {
		es, err := helpers.NewESClient(addrs, cfg.ElasticsearchUser, cfg.ElasticsearchPass)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("could not create elasticsearch client: %w", err)
		}
		c.Index = elasticsearch.NewUserIndex(es, cfg.ESUsersIndex)
	}

	c.Repo = repo
	c.Service = application.NewService(repo)
	return c, nil
}

func (c *Container) storage(ctx context.Context) (repository.UserRepository, error) {
	cfg := c.Config
	switch cfg.RepositoryDriver {
	case config.DriverMemory:
		c.Logger.Warn("using in-memory user repository; data is lost on exit")
		return memory.NewUserRepository(), nil
	case config.DriverPostgres, "":
		if cfg.AutoMigrate {
			if err := pginfra.RunMigrations(cfg.PostgresDSN(), cfg.MigrationsDir, c.Logger); err != nil {
				return nil, fmt.Errorf("migration failed: %w", err)
			}
		}
		pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		c.Pool = pool
		c.closers = append(c.closers, pool.Close)
		return pginfra.NewUserRepository(pool), nil
	default:
		return nil, fmt.Errorf("unknown REPOSITORY_DRIVER %q", cfg.RepositoryDriver)
	}
}

// HealthChecks returns one ping per configured backing service.
func (c *Container) HealthChecks() map[string]func(ctx context.Context) error {
	checks := map[string]func(ctx context.Context) error{}
	if c.Pool != nil {
		checks["postgres"] = c.Pool.Ping
	}
	if c.Redis != nil {
		checks["redis"] = func(ctx context.Context) error { return c.Redis.Ping(ctx).Err() }
	}
	if c.Index != nil {
		checks["elasticsearch"] = c.Index.Ping
	}
	return checks
}

// Close releases everything New opened, newest first.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}
