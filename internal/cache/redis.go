// Package cache provides an optional Redis-backed result cache shared
// across server instances. It complements the in-process LRU: the LRU
// serves repeats within one process, Redis serves repeats across
// restarts and replicas.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/vcf-risk-engine/internal/domain"
)

const keyPrefix = "genrisk:result:"

// ResultCache stores normalized analysis results in Redis.
type ResultCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logrus.Logger
}

// NewResultCache connects to Redis using a redis:// URL. An empty URL
// disables caching and returns nil, which every method tolerates.
func NewResultCache(redisURL string, ttl time.Duration, logger *logrus.Logger) (*ResultCache, error) {
	if redisURL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	if ttl <= 0 {
		ttl = time.Hour
	}

	logger.WithField("ttl", ttl).Info("Redis result cache enabled")

	return &ResultCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}, nil
}

// Get returns the cached result for a key, or nil on miss. Redis
// errors degrade to a miss.
func (c *ResultCache) Get(ctx context.Context, key string) *domain.AnalysisResult {
	if c == nil {
		return nil
	}

	data, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		c.logger.WithError(err).Warn("Redis cache read failed")
		return nil
	}

	var result domain.AnalysisResult
	if err := json.Unmarshal(data, &result); err != nil {
		c.logger.WithError(err).Warn("Discarding undecodable cache entry")
		return nil
	}
	return &result
}

// Set stores a result under a key. Failures are logged, not returned:
// the cache is best-effort.
func (c *ResultCache) Set(ctx context.Context, key string, result *domain.AnalysisResult) {
	if c == nil {
		return
	}

	data, err := json.Marshal(result)
	if err != nil {
		c.logger.WithError(err).Warn("Failed to encode result for cache")
		return
	}
	if err := c.client.Set(ctx, keyPrefix+key, data, c.ttl).Err(); err != nil {
		c.logger.WithError(err).Warn("Redis cache write failed")
	}
}

// Close releases the Redis connection.
func (c *ResultCache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
