package sink

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/YaganovValera/analytics-system/stream-connector/common/logger"
	"github.com/YaganovValera/analytics-system/stream-connector/internal/metrics"
	"github.com/YaganovValera/analytics-system/stream-connector/pkg/binance"
	"github.com/YaganovValera/analytics-system/stream-connector/pkg/stream"
)

var dispatcherTracer = otel.Tracer("connector/sink/dispatcher")

// Dispatcher reads the latest result from the watch channel and hands
// every decoded event to all sinks. The watch channel keeps only the newest
// value, so a slow sink sees the freshest event rather than a backlog.
type Dispatcher struct {
	rx            *stream.Receiver[stream.Result[binance.Event]]
	sinks         []Sink
	defaultStream string
	log           *logger.Logger
}

// NewDispatcher builds a Dispatcher. defaultStream names events that arrive
// without a stream name (single-stream endpoints).
func NewDispatcher(rx *stream.Receiver[stream.Result[binance.Event]], defaultStream string, log *logger.Logger, sinks ...Sink) *Dispatcher {
	return &Dispatcher{
		rx:            rx,
		sinks:         sinks,
		defaultStream: defaultStream,
		log:           log.Named("dispatcher"),
	}
}

// Run loops until ctx is done or the actor drops the watch channel.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.log.Info("dispatcher started", zap.Int("sinks", len(d.sinks)))
	for {
		if err := d.rx.Changed(ctx); err != nil {
			if errors.Is(err, stream.ErrChannelClosed) || ctx.Err() != nil {
				d.log.Info("dispatcher stopped", zap.Error(err))
				return nil
			}
			return err
		}
		d.dispatch(ctx, d.rx.Borrow())
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, res stream.Result[binance.Event]) {
	if res.Err != nil {
		kind := stream.KindOf(res.Err)
		metrics.ErrorsTotal.WithLabelValues(kind.String()).Inc()
		if kind == stream.KindDecode {
			d.log.Warn("dropping undecodable frame", zap.Error(res.Err))
		} else {
			d.log.Info("connection lost", zap.Stringer("kind", kind), zap.Error(res.Err))
		}
		return
	}
	if res.Event.Data == nil {
		return
	}

	rec := d.record(res.Event)
	metrics.EventsTotal.WithLabelValues(rec.Stream).Inc()

	ctx, span := dispatcherTracer.Start(ctx, "Dispatch")
	defer span.End()

	for _, s := range d.sinks {
		if err := s.Handle(ctx, rec); err != nil {
			metrics.SinkErrors.WithLabelValues(s.Name()).Inc()
			span.RecordError(err)
			d.log.WithContext(ctx).Error("sink delivery failed",
				zap.String("sink", s.Name()),
				zap.String("stream", rec.Stream),
				zap.Error(err),
			)
			continue
		}
		metrics.SinkLatency.WithLabelValues(s.Name()).Observe(time.Since(rec.ReceivedAt).Seconds())
	}
}

func (d *Dispatcher) record(ev stream.Event[binance.Event]) Record {
	name := ev.Stream
	if name == "" {
		name = d.defaultStream
	}
	rec := Record{
		Stream:     name,
		Type:       ev.Data.EventType(),
		Symbol:     ev.Data.EventSymbol(),
		ReceivedAt: ev.ReceivedAt,
		Data:       ev.Data,
	}
	if t := ev.Data.EventTime(); !t.IsZero() {
		rec.EventTime = t
	}
	return rec
}
