package infrastructure

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
)

// PositionCache caches queue positions in Redis so position polling does not
// hit the database on every request. Entries carry a short TTL; the cache is
// advisory and every mutation path invalidates the affected pair.
type PositionCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewPositionCache creates a new position cache. A nil client disables
// caching; every lookup misses.
func NewPositionCache(client *redis.Client, ttl time.Duration) *PositionCache {
	return &PositionCache{client: client, ttl: ttl}
}

// Get returns the cached position and whether it was present
func (c *PositionCache) Get(ctx context.Context, itemID, accountID int64) (int, bool) {
	if c.client == nil {
		return 0, false
	}

	value, err := c.client.Get(ctx, positionKey(itemID, accountID)).Result()
	if err == redis.Nil {
		return 0, false
	}
	if err != nil {
		log.WithError(err).Warn("Queue position cache read failed")
		return 0, false
	}

	position, err := strconv.Atoi(value)
	if err != nil {
		return 0, false
	}
	return position, true
}

// Set stores a position with the cache TTL
func (c *PositionCache) Set(ctx context.Context, itemID, accountID int64, position int) {
	if c.client == nil {
		return
	}

	if err := c.client.Set(ctx, positionKey(itemID, accountID), position, c.ttl).Err(); err != nil {
		log.WithError(err).Warn("Queue position cache write failed")
	}
}

// Invalidate drops the cached position for one account on one item
func (c *PositionCache) Invalidate(ctx context.Context, itemID, accountID int64) {
	if c.client == nil {
		return
	}

	if err := c.client.Del(ctx, positionKey(itemID, accountID)).Err(); err != nil {
		log.WithError(err).Warn("Queue position cache invalidation failed")
	}
}

func positionKey(itemID, accountID int64) string {
	return fmt.Sprintf("queue:position:%d:%d", itemID, accountID)
}
