// Package cache provides the delivery dedupe store used to skip webhook
// redeliveries.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const dedupePrefix = "stravalink:event:"

// Deduper records event keys with a TTL. Seen returns true when the key was
// already recorded inside the TTL window. Callers treat errors as "not seen":
// a broken cache must never swallow first deliveries.
type Deduper interface {
	Seen(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// RedisDeduper implements Deduper on Redis SET NX.
type RedisDeduper struct {
	client redis.UniversalClient
}

var _ Deduper = (*RedisDeduper)(nil)

func NewRedisDeduper(client redis.UniversalClient) *RedisDeduper {
	return &RedisDeduper{client: client}
}

func (d *RedisDeduper) Seen(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	stored, err := d.client.SetNX(ctx, dedupePrefix+key, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedupe check: %w", err)
	}
	return !stored, nil
}

// MemoryDeduper is the fallback when Redis is not configured. Entries expire
// lazily on access; the window resets on process restart, which degrades to
// the provider's native at-least-once delivery, never to dropped events.
type MemoryDeduper struct {
	mu   sync.Mutex
	seen map[string]time.Time
}

var _ Deduper = (*MemoryDeduper)(nil)

func NewMemoryDeduper() *MemoryDeduper {
	return &MemoryDeduper{seen: make(map[string]time.Time)}
}

func (d *MemoryDeduper) Seen(_ context.Context, key string, ttl time.Duration) (bool, error) {
	now := time.Now()

	d.mu.Lock()
	defer d.mu.Unlock()

	for k, expiry := range d.seen {
		if now.After(expiry) {
			delete(d.seen, k)
		}
	}

	if expiry, ok := d.seen[key]; ok && now.Before(expiry) {
		return true, nil
	}
	d.seen[key] = now.Add(ttl)
	return false, nil
}
