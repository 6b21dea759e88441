package infra

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/arcscan/bridge-indexer/pkg/common/logger"
)

// RedisClient abstracts the subset of redis operations the service uses.
type RedisClient interface {
	GetClient() *redis.Client
	Set(key string, value any, expiration time.Duration) error
	Get(key string) (string, error)
	Del(keys ...string) error
	Close() error
}

type redisWrapper struct {
	client *redis.Client
}

// NewRedisClient connects to redis using a redis:// URL and verifies the
// connection before returning.
func NewRedisClient(url string) (RedisClient, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	cpus := runtime.GOMAXPROCS(0)
	opts.PoolSize = cpus * 10
	opts.MinIdleConns = cpus * 2
	opts.ConnMaxLifetime = 30 * time.Minute
	opts.ConnMaxIdleTime = 5 * time.Minute
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	opts.MaxRetries = 3
	opts.MinRetryBackoff = 100 * time.Millisecond
	opts.MaxRetryBackoff = 500 * time.Millisecond

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("Connected to Redis", "addr", opts.Addr)

	return &redisWrapper{client: client}, nil
}

func (rw *redisWrapper) GetClient() *redis.Client {
	return rw.client
}

func (rw *redisWrapper) Set(key string, value any, expiration time.Duration) error {
	return rw.client.Set(context.Background(), key, value, expiration).Err()
}

func (rw *redisWrapper) Get(key string) (string, error) {
	return rw.client.Get(context.Background(), key).Result()
}

func (rw *redisWrapper) Del(keys ...string) error {
	return rw.client.Del(context.Background(), keys...).Err()
}

func (rw *redisWrapper) Close() error {
	return rw.client.Close()
}
