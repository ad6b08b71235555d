package stream

import (
	"time"

	"github.com/YaganovValera/analytics-system/stream-connector/common/logger"
)

type options struct {
	dialer Dialer
	log    *logger.Logger
	env    EnvelopeDecoder
	now    func() time.Time
}

// Option configures New.
type Option func(*options)

// WithDialer sets the transport used by Connect. Without it every Connect
// fails with KindConnect.
func WithDialer(d Dialer) Option { return func(o *options) { o.dialer = d } }

func WithLogger(l *logger.Logger) Option { return func(o *options) { o.log = l } }

// WithEnvelopeDecoder overrides DecodeEnvelope in CombinedStreams mode.
func WithEnvelopeDecoder(d EnvelopeDecoder) Option { return func(o *options) { o.env = d } }

// WithClock overrides time.Now for Event.ReceivedAt.
func WithClock(now func() time.Time) Option { return func(o *options) { o.now = now } }

func defaultOptions() options {
	return options{
		log: logger.NewNop(),
		env: DecodeEnvelope,
		now: time.Now,
	}
}
