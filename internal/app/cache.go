package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"booking-service/internal/schedule"
)

// SlotCache memoizes slot listings in redis for a short TTL. Keys embed a
// per-user version counter that is bumped on every booking mutation, so a
// fresh booking immediately orphans cached listings instead of waiting for
// the TTL. Every operation fails soft; a broken redis only costs cache hits.
// A nil *SlotCache is a no-op.
type SlotCache struct {
	rdb *redis.Client
	ttl time.Duration
	log *zap.Logger
}

func NewSlotCache(rdb *redis.Client, ttl time.Duration, log *zap.Logger) *SlotCache {
	return &SlotCache{rdb: rdb, ttl: ttl, log: log}
}

func (c *SlotCache) Get(ctx context.Context, userID, key string) ([]schedule.Slot, bool) {
	if c == nil {
		return nil, false
	}
	payload, err := c.rdb.Get(ctx, c.fullKey(ctx, userID, key)).Result()
	if err != nil {
		if err != redis.Nil {
			c.log.Warn("slot cache read failed", zap.Error(err))
		}
		return nil, false
	}
	var slots []schedule.Slot
	if err := json.Unmarshal([]byte(payload), &slots); err != nil {
		return nil, false
	}
	return slots, true
}

func (c *SlotCache) Put(ctx context.Context, userID, key string, slots []schedule.Slot) {
	if c == nil {
		return
	}
	payload, err := json.Marshal(slots)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, c.fullKey(ctx, userID, key), payload, c.ttl).Err(); err != nil {
		c.log.Warn("slot cache write failed", zap.Error(err))
	}
}

// Invalidate bumps the user's version counter, orphaning every cached
// listing for that user at once.
func (c *SlotCache) Invalidate(ctx context.Context, userID string) {
	if c == nil {
		return
	}
	if err := c.rdb.Incr(ctx, fmt.Sprintf("slotver:%s", userID)).Err(); err != nil {
		c.log.Warn("slot cache invalidation failed", zap.Error(err))
	}
}

func (c *SlotCache) fullKey(ctx context.Context, userID, key string) string {
	version, err := c.rdb.Get(ctx, fmt.Sprintf("slotver:%s", userID)).Result()
	if err != nil {
		version = "0"
	}
	return fmt.Sprintf("slots:%s:%s:%s", userID, version, key)
}
