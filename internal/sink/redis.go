package sink

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/YaganovValera/analytics-system/stream-connector/common/logger"
	"github.com/YaganovValera/analytics-system/stream-connector/common/redis"
)

// RedisSink keeps the latest record of every stream under "<prefix>:<stream>".
type RedisSink struct {
	cache  redis.Cache
	prefix string
	log    *logger.Logger
}

func NewRedisSink(c redis.Cache, prefix string, log *logger.Logger) *RedisSink {
	return &RedisSink{cache: c, prefix: prefix, log: log.Named("redis-sink")}
}

func (r *RedisSink) Name() string { return "redis" }

// Key is the cache key holding the latest record of stream.
func (r *RedisSink) Key(stream string) string {
	if r.prefix == "" {
		return stream
	}
	return r.prefix + ":" + stream
}

func (r *RedisSink) Handle(ctx context.Context, rec Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("redis sink: marshal: %w", err)
	}
	key := r.Key(rec.Stream)
	if err := r.cache.Set(ctx, key, payload); err != nil {
		r.log.WithContext(ctx).Warn("latest record not stored", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("redis sink: set: %w", err)
	}
	r.log.Debug("latest record stored", zap.String("key", key))
	return nil
}

// Latest returns the stored record of stream as raw JSON.
func (r *RedisSink) Latest(ctx context.Context, stream string) ([]byte, error) {
	return r.cache.Get(ctx, r.Key(stream))
}
