package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/dispatch-service/internal/config"
)

// Redis wraps the go-redis client.
type Redis struct {
	Client *redis.Client
}

// NewRedis connects to Redis using the provided configuration. It returns nil when
// Redis is disabled; an unreachable server is logged and the client kept for retries.
func NewRedis(cfg config.RedisConfig, logger *zap.Logger) *Redis {
	if !cfg.Enabled {
		logger.Info("redis disabled; notifications stay in-process")
		return nil
	}
	client := redis.NewClient(redisOptions(cfg, logger))

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("unable to reach redis", zap.String("addr", client.Options().Addr), zap.Error(err))
	} else {
		logger.Info("connected to redis", zap.String("addr", client.Options().Addr))
	}

	return &Redis{Client: client}
}

// redisOptions accepts either host:port or a redis:// URL in REDIS_ADDR. Explicit
// password and DB settings win over the URL.
func redisOptions(cfg config.RedisConfig, logger *zap.Logger) *redis.Options {
	if strings.HasPrefix(cfg.Addr, "redis://") || strings.HasPrefix(cfg.Addr, "rediss://") {
		opts, err := redis.ParseURL(cfg.Addr)
		if err == nil {
			if cfg.Password != "" {
				opts.Password = cfg.Password
			}
			if cfg.DB != 0 {
				opts.DB = cfg.DB
			}
			return opts
		}
		logger.Warn("invalid redis url; using it as an address", zap.Error(err))
	}
	return &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

// Close closes the client.
func (r *Redis) Close() {
	if r != nil && r.Client != nil {
		_ = r.Client.Close()
	}
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return errors.New("redis client not configured")
	}
	return r.Client.Ping(ctx).Err()
}
