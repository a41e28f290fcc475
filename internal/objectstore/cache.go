package objectstore

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "obj:"

// Cache is a positive-only existence cache in front of the metadata store.
// Objects are immutable and never deleted in-band, so a cached "present"
// can never go stale; misses always fall through to the metadata store.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// CacheConfig defines Redis connection settings.
type CacheConfig struct {
	Addr     string
	Username string
	Password string
	Database int
	TTL      time.Duration
}

// NewCache connects to Redis and verifies the connection.
func NewCache(cfg CacheConfig) (*Cache, error) {
	addr := cfg.Addr
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.Database,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cache{client: client, ttl: ttl}, nil
}

// Contains reports a cached hit. Errors count as a miss; the metadata
// store remains the source of truth.
func (c *Cache) Contains(ctx context.Context, hash string) bool {
	n, err := c.client.Exists(ctx, cacheKeyPrefix+hash).Result()
	return err == nil && n > 0
}

// MarkStored records a hash as present. Best effort.
func (c *Cache) MarkStored(ctx context.Context, hash string) {
	_ = c.client.Set(ctx, cacheKeyPrefix+hash, 1, c.ttl).Err()
}

func (c *Cache) Close() error { return c.client.Close() }
