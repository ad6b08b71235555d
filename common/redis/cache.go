package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	goredis "github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/YaganovValera/analytics-system/stream-connector/common/backoff"
	"github.com/YaganovValera/analytics-system/stream-connector/common/logger"
)

// Cache is a TTL key/value store.
type Cache interface {
	// Get returns ErrNotFound for a missing key.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value for the configured TTL.
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

// ErrNotFound is returned by Get when the key is absent.
var ErrNotFound = errors.New("redis: key not found")

var (
	redisMetrics = struct {
		Errors  *prometheus.CounterVec
		Latency *prometheus.HistogramVec
	}{
		Errors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "common", Subsystem: "redis", Name: "errors_total",
			Help: "Redis operation errors",
		}, []string{"op"}),
		Latency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "common", Subsystem: "redis", Name: "operation_latency_seconds",
			Help:    "Latency of Redis operations",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
	}
	tracer = otel.Tracer("redis-cache")
)

type redisCache struct {
	client     *goredis.Client
	ttl        time.Duration
	log        *logger.Logger
	backoffCfg backoff.Config
}

// New connects to Redis, retrying the initial PING with back-off.
func New(ctx context.Context, cfg Config, log *logger.Logger) (Cache, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	log = log.Named("redis")

	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	op := func(ctx context.Context) error { return client.Ping(ctx).Err() }
	ctxConn, span := tracer.Start(ctx, "Connect", trace.WithAttributes(attribute.String("addr", cfg.Addr)))
	if err := backoff.Execute(ctxConn, "redis_connect", cfg.Backoff, log, op); err != nil {
		span.RecordError(err)
		span.End()
		_ = client.Close()
		return nil, fmt.Errorf("redis connect: %w", err)
	}
	span.End()
	log.Info("redis: connected", zap.String("addr", cfg.Addr))

	return &redisCache{
		client:     client,
		ttl:        cfg.TTL,
		log:        log,
		backoffCfg: cfg.Backoff,
	}, nil
}

// do runs op under a span with retries, metrics and error logging.
func (r *redisCache) do(ctx context.Context, name, key string, op backoff.RetryableFunc) error {
	ctxOp, span := tracer.Start(ctx, name, trace.WithAttributes(attribute.String("key", key)))
	defer span.End()

	start := time.Now()
	err := backoff.Execute(ctxOp, "redis_"+name, r.backoffCfg, r.log, op)
	redisMetrics.Latency.WithLabelValues(name).Observe(time.Since(start).Seconds())
	if err != nil && !errors.Is(err, ErrNotFound) {
		redisMetrics.Errors.WithLabelValues(name).Inc()
		r.log.WithContext(ctx).Error("redis "+name+" failed", zap.String("key", key), zap.Error(err))
		span.RecordError(err)
	}
	return err
}

func (r *redisCache) Get(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := r.do(ctx, "get", key, func(ctx context.Context) error {
		val, err := r.client.Get(ctx, key).Bytes()
		if errors.Is(err, goredis.Nil) {
			return backoff.Permanent(ErrNotFound)
		}
		if err != nil {
			return err
		}
		data = val
		return nil
	})
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotFound
	}
	return data, err
}

func (r *redisCache) Set(ctx context.Context, key string, value []byte) error {
	return r.do(ctx, "set", key, func(ctx context.Context) error {
		return r.client.Set(ctx, key, value, r.ttl).Err()
	})
}

func (r *redisCache) Delete(ctx context.Context, key string) error {
	return r.do(ctx, "del", key, func(ctx context.Context) error {
		return r.client.Del(ctx, key).Err()
	})
}

func (r *redisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *redisCache) Close() error {
	return r.client.Close()
}
