package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"campaign-engine/internal/logger"
)

// RequestLog remembers which orchestration requests were already handled so
// redelivered Kafka messages are not run twice.
type RequestLog struct {
	rdb *redis.Client
	ttl time.Duration
	log *logrus.Entry
}

func NewRequestLog(rdb *redis.Client, ttl time.Duration) *RequestLog {
	return &RequestLog{rdb: rdb, ttl: ttl, log: logger.Get("cache")}
}

// FirstSeen claims requestID and reports whether this caller is the first.
// When Redis is unreachable every request counts as new.
func (l *RequestLog) FirstSeen(ctx context.Context, requestID string) bool {
	if requestID == "" {
		return true
	}
	// redis/go-redis/v9: SetNX writes the key only if it does not exist yet.
	ok, err := l.rdb.SetNX(ctx, "campaign:request:"+requestID, time.Now().UTC().Format(time.RFC3339), l.ttl).Result()
	if err != nil {
		l.log.WithError(err).Warn("Cache: request log unavailable")
		return true
	}
	return ok
}
