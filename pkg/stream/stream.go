package stream

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Event is a successfully decoded text frame.
type Event[E any] struct {
	Stream     string // empty in SingleStream mode
	Data       E
	ReceivedAt time.Time
}

// Result is the value carried by the watch channel: an Event or a typed
// error (KindDecode, KindPeerClosed, KindTransport).
type Result[E any] struct {
	Event Event[E]
	Err   error
}

// New builds a connected Controller/Actor pair. The caller runs the actor
// with go actor.Run(ctx).
func New[E any](mode Mode, dec Decoder[E], opts ...Option) (*Controller[E], *Actor[E]) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	commands := make(chan Command, 1)
	responses := make(chan error, 1)
	released := make(chan struct{})
	w := newWatch[Result[E]]()

	a := &Actor[E]{
		mode:      mode,
		route:     newRoute(mode, dec, o.env),
		dialer:    o.dialer,
		now:       o.now,
		base:      o.log.Named("stream").With(zap.Stringer("mode", mode)),
		commands:  commands,
		responses: responses,
		watch:     w,
		released:  released,
		done:      make(chan struct{}),
	}
	a.log = a.base

	c := &Controller[E]{
		commands:  commands,
		responses: responses,
		watch:     w,
		released:  released,
		release:   new(sync.Once),
		actor:     a,
	}
	return c, a
}
