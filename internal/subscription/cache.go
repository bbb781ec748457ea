package subscription

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gymportal/internal/logger"
	"gymportal/internal/metrics"

	"github.com/redis/go-redis/v9"
)

const (
	cacheKeyPrefix  = "subscription:"
	DefaultCacheTTL = time.Minute
)

// Cache is a read-through Redis cache of subscription rows. A nil Cache is a no-op.
type Cache struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewCache(rdb *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{redis: rdb, ttl: ttl}
}

func cacheKey(userID string) string {
	return cacheKeyPrefix + userID
}

func (c *Cache) Get(ctx context.Context, userID string) (*Subscription, bool) {
	if c == nil {
		return nil, false
	}

	data, err := c.redis.Get(ctx, cacheKey(userID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Warn("subscription cache read failed", "user_id", userID, "error", err)
		}
		metrics.RecordCacheLookup(false)
		return nil, false
	}

	var sub Subscription
	if err := json.Unmarshal(data, &sub); err != nil {
		metrics.RecordCacheLookup(false)
		return nil, false
	}
	metrics.RecordCacheLookup(true)
	return &sub, true
}

func (c *Cache) Set(ctx context.Context, sub *Subscription) {
	if c == nil || sub == nil {
		return
	}

	data, err := json.Marshal(sub)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, cacheKey(sub.UserID), data, c.ttl).Err(); err != nil {
		logger.Warn("subscription cache write failed", "user_id", sub.UserID, "error", err)
	}
}

func (c *Cache) Invalidate(ctx context.Context, userID string) {
	if c == nil {
		return
	}
	if err := c.redis.Del(ctx, cacheKey(userID)).Err(); err != nil {
		logger.Warn("subscription cache invalidate failed", "user_id", userID, "error", err)
	}
}
