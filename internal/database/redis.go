package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/radiusdt/mediaplan/internal/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrCacheMiss is returned by GetJSON when the key does not exist.
var ErrCacheMiss = errors.New("cache miss")

// LatencyRecorder receives Redis round-trip timings. metrics.Metrics satisfies it.
type LatencyRecorder interface {
	RecordRedisOp(op string, latency time.Duration)
}

// RedisDB wraps a Redis client with convenience methods.
type RedisDB struct {
	Client  *redis.Client
	logger  *zap.Logger
	metrics LatencyRecorder
}

// NewRedisDB creates a new Redis client connection.
func NewRedisDB(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) (*RedisDB, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: 20,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("connected to Redis",
		zap.String("addr", cfg.Addr),
		zap.Int("db", cfg.DB),
	)

	return &RedisDB{
		Client: client,
		logger: logger,
	}, nil
}

// SetMetrics sets the latency recorder.
func (r *RedisDB) SetMetrics(m LatencyRecorder) {
	r.metrics = m
}

func (r *RedisDB) observe(op string, start time.Time) {
	if r.metrics != nil {
		r.metrics.RecordRedisOp(op, time.Since(start))
	}
}

// GetJSON decodes the JSON value stored at key into dst.
func (r *RedisDB) GetJSON(ctx context.Context, key string, dst any) error {
	start := time.Now()
	data, err := r.Client.Get(ctx, key).Bytes()
	r.observe("get", start)
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode cached %s: %w", key, err)
	}
	return nil
}

// SetJSON stores v as JSON at key with the given TTL.
func (r *RedisDB) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	start := time.Now()
	err = r.Client.Set(ctx, key, data, ttl).Err()
	r.observe("set", start)
	if err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Close closes the Redis connection.
func (r *RedisDB) Close() error {
	if r.Client != nil {
		r.logger.Info("Redis connection closed")
		return r.Client.Close()
	}
	return nil
}

// Health checks if Redis is reachable.
func (r *RedisDB) Health(ctx context.Context) error {
	return r.Client.Ping(ctx).Err()
}
