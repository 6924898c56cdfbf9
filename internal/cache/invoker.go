// Package cache memoizes remote agent replies in Redis.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"campaign-engine/internal/agent"
	"campaign-engine/internal/logger"
)

const statsKey = "agentcache:stats"

// Invoker wraps another agent.Invoker. Only successful replies that decode to
// JSON are stored, so a failing or rambling agent is retried on the next request.
type Invoker struct {
	next agent.Invoker
	rdb  *redis.Client
	ttl  time.Duration
	log  *logrus.Entry
}

// NewClient connects to Redis at addr.
func NewClient(addr string) *redis.Client {
	// redis/go-redis/v9: NewClient creates the client shared by the agent cache.
	return redis.NewClient(&redis.Options{Addr: addr})
}

func NewInvoker(next agent.Invoker, rdb *redis.Client, ttl time.Duration) *Invoker {
	return &Invoker{next: next, rdb: rdb, ttl: ttl, log: logger.Get("cache")}
}

// Key is the cache key of one agent call.
func Key(agentID string, payload []byte) string {
	sum := sha256.Sum256(payload)
	return fmt.Sprintf("agentcache:%s:%s", agentID, hex.EncodeToString(sum[:]))
}

func (c *Invoker) Invoke(ctx context.Context, agentID string, payload []byte) ([]byte, error) {
	key := Key(agentID, payload)

	// redis/go-redis/v9: Get returns redis.Nil on a miss. Any other error
	// bypasses the cache rather than failing the call.
	cached, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		c.count(ctx, "hits")
		c.log.WithField("agent", agentID).Debug("Cache: hit")
		return cached, nil
	case err != redis.Nil:
		c.log.WithError(err).Warn("Cache: lookup failed")
	}
	c.count(ctx, "misses")

	body, err := c.next.Invoke(ctx, agentID, payload)
	if err != nil {
		return nil, err
	}

	if agent.IsRaw(agent.Decode(body)) {
		c.log.WithField("agent", agentID).Debug("Cache: reply not JSON, not stored")
		return body, nil
	}

	// redis/go-redis/v9: Set with TTL so stale analyses age out.
	if err := c.rdb.Set(ctx, key, body, c.ttl).Err(); err != nil {
		c.log.WithError(err).Warn("Cache: store failed")
	}
	return body, nil
}

// Stats returns the hit and miss counters.
func (c *Invoker) Stats(ctx context.Context) (hits, misses int64, err error) {
	// redis/go-redis/v9: HGetAll reads the counter hash in one round trip.
	vals, err := c.rdb.HGetAll(ctx, statsKey).Result()
	if err != nil {
		return 0, 0, err
	}
	fmt.Sscan(vals["hits"], &hits)
	fmt.Sscan(vals["misses"], &misses)
	return hits, misses, nil
}

func (c *Invoker) count(ctx context.Context, field string) {
	// redis/go-redis/v9: HIncrBy keeps hit/miss counters in a single hash.
	if err := c.rdb.HIncrBy(ctx, statsKey, field, 1).Err(); err != nil {
		c.log.WithError(err).Debug("Cache: counter update failed")
	}
}
