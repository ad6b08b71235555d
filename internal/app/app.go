// internal/app/app.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/YaganovValera/analytics-system/stream-connector/common"
	"github.com/YaganovValera/analytics-system/stream-connector/common/httpserver"
	"github.com/YaganovValera/analytics-system/stream-connector/common/kafka"
	"github.com/YaganovValera/analytics-system/stream-connector/common/kafka/producer"
	"github.com/YaganovValera/analytics-system/stream-connector/common/logger"
	prom "github.com/YaganovValera/analytics-system/stream-connector/common/prometheus"
	"github.com/YaganovValera/analytics-system/stream-connector/common/redis"
	"github.com/YaganovValera/analytics-system/stream-connector/common/shutdown"
	"github.com/YaganovValera/analytics-system/stream-connector/common/telemetry"
	"github.com/YaganovValera/analytics-system/stream-connector/internal/config"
	"github.com/YaganovValera/analytics-system/stream-connector/internal/metrics"
	"github.com/YaganovValera/analytics-system/stream-connector/internal/sink"
	"github.com/YaganovValera/analytics-system/stream-connector/internal/supervisor"
	"github.com/YaganovValera/analytics-system/stream-connector/pkg/binance"
	"github.com/YaganovValera/analytics-system/stream-connector/pkg/stream"
	"github.com/YaganovValera/analytics-system/stream-connector/pkg/stream/wsconn"
)

const closeTimeout = 5 * time.Second

// Run wires the connection actor, its supervisor, the sinks and the probe
// server, and blocks until ctx is cancelled or one of them fails.
func Run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	common.InitServiceName(cfg.ServiceName)
	metrics.Register()
	stream.RegisterMetrics(prom.DefaultRegistry)

	cfg.Telemetry.ServiceName = cfg.ServiceName
	cfg.Telemetry.ServiceVersion = cfg.ServiceVersion
	shutdownTracer, err := telemetry.InitTracer(ctx, cfg.Telemetry, log)
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	defer func() { _ = shutdown.GracefulShutdown("telemetry", closeTimeout, shutdownTracer, log) }()

	target, host, err := cfg.Stream.Target()
	if err != nil {
		return fmt.Errorf("stream target: %w", err)
	}
	dialer, err := wsconn.NewDialer(cfg.Stream.Transport, log)
	if err != nil {
		return fmt.Errorf("ws dialer init: %w", err)
	}

	ctrl, actor := stream.New(host.Mode(), binance.DecodeEvent,
		stream.WithDialer(dialer),
		stream.WithLogger(log),
	)
	// Subscribed before the supervisor connects so the first event is seen.
	rx := ctrl.Subscribe()

	var (
		sinks    []sink.Sink
		kafkaPrd kafka.Producer
		extra    = map[string]http.Handler{}
	)
	if cfg.Kafka.Enabled {
		kafkaPrd, err = producer.New(ctx, cfg.Kafka.Config, log)
		if err != nil {
			return fmt.Errorf("kafka producer init: %w", err)
		}
		defer closeSafe("kafka-producer", kafkaPrd.Close, log)
		sinks = append(sinks, sink.NewKafkaSink(kafkaPrd, cfg.Kafka.Topic, log))
	}
	if cfg.Redis.Enabled {
		cache, err := redis.New(ctx, cfg.Redis.Config, log)
		if err != nil {
			return fmt.Errorf("redis init: %w", err)
		}
		defer closeSafe("redis", cache.Close, log)
		rs := sink.NewRedisSink(cache, cfg.Redis.KeyPrefix, log)
		sinks = append(sinks, rs)
		extra["/latest"] = latestHandler(rs)
	}

	sup := supervisor.New[binance.Event](ctrl, supervisor.Config{
		Target:         target,
		Backoff:        cfg.Reconnect,
		CommandTimeout: cfg.Stream.CommandTimeout,
	}, log)

	defaultStream := ""
	if len(cfg.Stream.Streams) == 1 {
		defaultStream = cfg.Stream.Streams[0]
	}
	dispatcher := sink.NewDispatcher(rx, defaultStream, log, sinks...)

	readiness := func() error {
		if err := sup.Ready(); err != nil {
			return err
		}
		if kafkaPrd != nil {
			return kafkaPrd.Ping(ctx)
		}
		return nil
	}
	httpSrv, err := httpserver.New(cfg.HTTP, readiness, log, extra)
	if err != nil {
		return fmt.Errorf("httpserver init: %w", err)
	}

	// The actor outlives the group context: the supervisor still has to send
	// Close through it, then releases the controller, which stops the actor.
	actorCtx, stopActor := context.WithCancel(context.WithoutCancel(ctx))
	defer stopActor()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return actor.Run(actorCtx) })
	g.Go(func() error { return sup.Run(gctx) })
	g.Go(func() error { return dispatcher.Run(gctx) })
	g.Go(func() error { return httpSrv.Start(gctx) })

	log.Info("stream-connector started",
		zap.String("target", target),
		zap.Stringer("mode", host.Mode()),
		zap.Int("sinks", len(sinks)),
	)

	if err := g.Wait(); err != nil {
		if errors.Is(err, context.Canceled) {
			log.Info("stream-connector stopped by context")
			return nil
		}
		return err
	}
	log.Info("stream-connector stopped")
	return nil
}

func latestHandler(rs *sink.RedisSink) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Query().Get("stream")
		if name == "" {
			http.Error(w, "stream query parameter is required", http.StatusBadRequest)
			return
		}
		raw, err := rs.Latest(r.Context(), name)
		switch {
		case errors.Is(err, redis.ErrNotFound):
			http.Error(w, "no event for stream", http.StatusNotFound)
			return
		case err != nil:
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(raw)
	})
}

func closeSafe(name string, fn func() error, log *logger.Logger) {
	_ = shutdown.GracefulShutdown(name, closeTimeout, func(context.Context) error { return fn() }, log)
}
