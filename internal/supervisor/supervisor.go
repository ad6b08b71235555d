// Package supervisor keeps the connection actor connected: it dials with
// back-off, reconnects after a lost connection and closes on shutdown.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/YaganovValera/analytics-system/stream-connector/common/backoff"
	"github.com/YaganovValera/analytics-system/stream-connector/common/logger"
	"github.com/YaganovValera/analytics-system/stream-connector/internal/metrics"
	"github.com/YaganovValera/analytics-system/stream-connector/pkg/stream"
)

var tracer = otel.Tracer("connector/supervisor")

// Controller is the part of *stream.Controller the supervisor drives.
type Controller[E any] interface {
	Do(ctx context.Context, cmd stream.Command) error
	Subscribe() *stream.Receiver[stream.Result[E]]
	State() stream.State
	Release()
}

// Config tunes the supervisor.
type Config struct {
	Target string
	// Backoff paces dial attempts. PerAttemptTimeout is not supported and
	// is cleared by New: a dial is bounded by the transport handshake.
	Backoff        backoff.Config
	CommandTimeout time.Duration // bounds the final Close
}

// Supervisor owns the reconnect policy for one actor.
type Supervisor[E any] struct {
	ctrl Controller[E]
	cfg  Config
	log  *logger.Logger
}

func New[E any](ctrl Controller[E], cfg Config, log *logger.Logger) *Supervisor[E] {
	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = 5 * time.Second
	}
	log = log.Named("supervisor").With(zap.String("target", cfg.Target))
	if cfg.Backoff.PerAttemptTimeout > 0 {
		log.Warn("reconnect per_attempt_timeout is ignored",
			zap.Duration("per_attempt_timeout", cfg.Backoff.PerAttemptTimeout))
		cfg.Backoff.PerAttemptTimeout = 0
	}
	return &Supervisor[E]{
		ctrl: ctrl,
		cfg:  cfg,
		log:  log,
	}
}

// Ready reports nil while the actor holds a live connection.
func (s *Supervisor[E]) Ready() error {
	if st := s.ctrl.State(); st != stream.StateConnected {
		return fmt.Errorf("stream %s", st)
	}
	return nil
}

// Run connects, then reconnects after every peer close or transport error
// until ctx is done. On exit it closes the connection and releases the
// controller, which stops the actor.
func (s *Supervisor[E]) Run(ctx context.Context) error {
	// Subscribe before connecting so no failure is missed.
	rx := s.ctrl.Subscribe()
	defer s.shutdown()

	if err := s.retry(ctx, "connect", stream.Connect(s.cfg.Target)); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("supervisor: connect: %w", err)
	}
	s.log.Info("stream connected")

	for {
		if err := rx.Changed(ctx); err != nil {
			if ctx.Err() != nil || errors.Is(err, stream.ErrChannelClosed) {
				return nil
			}
			return err
		}
		res := rx.Borrow()
		switch stream.KindOf(res.Err) {
		case stream.KindPeerClosed, stream.KindTransport:
		default:
			continue
		}
		if s.ctrl.State() != stream.StateDisconnected {
			continue
		}

		s.log.Warn("stream lost, reconnecting", zap.Error(res.Err))
		if err := s.retry(ctx, "reconnect", stream.Reconnect()); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			metrics.Reconnects.WithLabelValues("failed").Inc()
			return fmt.Errorf("supervisor: reconnect: %w", err)
		}
		metrics.Reconnects.WithLabelValues("ok").Inc()
		s.log.Info("stream reconnected")
	}
}

// retry issues cmd under back-off. Each attempt runs on ctx: a dial cut short
// by a per-attempt deadline keeps running in the actor, and the next Connect
// could then find the stream already connected.
func (s *Supervisor[E]) retry(ctx context.Context, op string, cmd stream.Command) error {
	ctx, span := tracer.Start(ctx, "supervisor."+op,
		trace.WithAttributes(attribute.String("target", s.cfg.Target)))
	defer span.End()

	err := backoff.Execute(ctx, op, s.cfg.Backoff, s.log, func(actx context.Context) error {
		attempt := backoff.Attempt(actx)
		span.AddEvent("attempt", trace.WithAttributes(attribute.Int("n", attempt)))
		s.log.Debug("issuing "+cmd.Kind.String(), zap.Int("attempt", attempt))
		err := s.ctrl.Do(ctx, cmd)
		switch stream.KindOf(err) {
		case stream.KindInvalidTarget, stream.KindInvalidCommand, stream.KindChannelClosed:
			return backoff.Permanent(err)
		}
		return err
	})
	if err != nil {
		span.RecordError(err)
	}
	return err
}

func (s *Supervisor[E]) shutdown() {
	defer s.ctrl.Release()
	if s.ctrl.State() != stream.StateConnected {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.CommandTimeout)
	defer cancel()
	if err := s.ctrl.Do(ctx, stream.Close()); err != nil {
		s.log.Warn("close failed", zap.Error(err))
		return
	}
	s.log.Info("stream closed")
}
