package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"github.com/railquery/railquery_core/internal/config"
	"github.com/railquery/railquery_core/internal/models"
	"github.com/redis/go-redis/v9"
)

// Cache is a read-through Redis cache for provider segment responses.
// Construction is explicit; there is no package-level client.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects to Redis and verifies the connection
func New(cfg config.RedisConfig) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Cache{client: client, ttl: cfg.TTL}, nil
}

// Client exposes the underlying connection for components that need
// raw Redis access, like the rate limiter.
func (c *Cache) Client() *redis.Client {
	return c.client
}

// SegmentsKey generates a deterministic cache key for a segment fetch
func SegmentsKey(svcType models.ServiceType, from, to, date string) string {
	data := fmt.Sprintf("%s|%s|%s|%s", svcType, from, to, date)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("segments:%x", hash[:8])
}

// GetSegments retrieves a cached segment list. A cache miss returns
// (nil, nil).
func (c *Cache) GetSegments(ctx context.Context, key string) ([]models.Segment, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var segments []models.Segment
	if err := json.Unmarshal(data, &segments); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached segments: %w", err)
	}
	return segments, nil
}

// SetSegments caches a segment list under the configured TTL
func (c *Cache) SetSegments(ctx context.Context, key string, segments []models.Segment) error {
	data, err := json.Marshal(segments)
	if err != nil {
		return fmt.Errorf("failed to marshal segments: %w", err)
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}

// HealthCheck pings the Redis server
func (c *Cache) HealthCheck(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("Redis ping failed: %w", err)
	}
	return nil
}

// Close closes the underlying client
func (c *Cache) Close() {
	c.client.Close()
}
