package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"enzyflow/internal/model"
)

const defaultKeyPrefix = "enzyflow:measurement:"

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
	Prefix   string
}

type Redis struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
	logger *zap.Logger
}

// NewRedis connects and pings the server.
func NewRedis(ctx context.Context, opts RedisOptions, logger *zap.Logger) (*Redis, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis %s: %w", opts.Addr, err)
	}
	prefix := opts.Prefix
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	logger.Info("redis cache initialized", zap.String("addr", opts.Addr), zap.Duration("ttl", opts.TTL))
	return &Redis{client: client, ttl: opts.TTL, prefix: prefix, logger: logger}, nil
}

func (c *Redis) Close() error {
	return c.client.Close()
}

func (c *Redis) Get(ctx context.Context, key string) (model.Measurement, bool, error) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.Measurement{}, false, nil
	}
	if err != nil {
		return model.Measurement{}, false, fmt.Errorf("get measurement: %w", err)
	}
	var m model.Measurement
	if err := json.Unmarshal(data, &m); err != nil {
		return model.Measurement{}, false, fmt.Errorf("decode measurement: %w", err)
	}
	c.logger.Debug("measurement cache hit", zap.String("key", key))
	return m, true, nil
}

func (c *Redis) Set(ctx context.Context, key string, m model.Measurement) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode measurement: %w", err)
	}
	if err := c.client.Set(ctx, c.prefix+key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("set measurement: %w", err)
	}
	return nil
}

// Purge deletes every key under the cache prefix.
func (c *Redis) Purge(ctx context.Context) (int, error) {
	n := 0
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			c.logger.Warn("failed to delete cache key", zap.String("key", iter.Val()), zap.Error(err))
			continue
		}
		n++
	}
	if err := iter.Err(); err != nil {
		return n, fmt.Errorf("scan cache keys: %w", err)
	}
	return n, nil
}
