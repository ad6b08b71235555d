package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/YaganovValera/analytics-system/stream-connector/common/logger"
)

// Actor owns the transport and runs the connection state machine. All
// socket writes happen on the goroutine executing Run.
type Actor[E any] struct {
	mode   Mode
	route  route[E]
	dialer Dialer
	now    func() time.Time

	base *logger.Logger
	log  *logger.Logger

	commands  <-chan Command
	responses chan error
	watch     *watch[Result[E]]
	released  <-chan struct{}
	done      chan struct{}

	state   atomic.Int32
	started atomic.Bool

	conn    Conn
	target  string
	session string
}

// State returns the current connection state. Safe from any goroutine.
func (a *Actor[E]) State() State { return State(a.state.Load()) }

// Done is closed once Run has returned and the socket is torn down.
func (a *Actor[E]) Done() <-chan struct{} { return a.done }

// Run processes commands and transport frames until a Close command, ctx
// cancellation or Controller.Release. The socket is closed on every exit
// path. Run may be called once.
func (a *Actor[E]) Run(ctx context.Context) error {
	if !a.started.CompareAndSwap(false, true) {
		return errors.New("stream: actor already running")
	}
	defer a.shutdown()

	for {
		if a.State() == StateClosed {
			return nil
		}

		// Only a Connected actor has a frame source to wait on.
		var frames <-chan Frame
		if a.conn != nil {
			frames = a.conn.Frames()
		}

		select {
		case <-ctx.Done():
			a.log.Info("stream: context cancelled, stopping actor")
			return ctx.Err()
		case <-a.released:
			a.log.Info("stream: controller released, stopping actor")
			return nil
		case f, ok := <-frames:
			if !ok {
				f = Frame{Kind: FrameError, Err: io.ErrUnexpectedEOF}
			}
			a.handleFrame(f)
		case cmd := <-a.commands:
			a.handleCommand(ctx, cmd)
		}
	}
}

func (a *Actor[E]) handleCommand(ctx context.Context, cmd Command) {
	state := a.State()
	var err error

	switch {
	case cmd.Kind == CommandConnect && state != StateConnected:
		err = a.connect(ctx, cmd.Target)
	case cmd.Kind == CommandReconnect && state == StateDisconnected && a.target != "":
		err = a.connect(ctx, a.target)
	case state != StateConnected:
		err = newError(KindInvalidCommand,
			fmt.Sprintf("%s in state %s: only Connect accepted in this state", cmd.Kind, state), nil)
	case cmd.Kind == CommandConnect:
		err = newError(KindInvalidCommand, "already connected to "+a.target, nil)
	case cmd.Kind == CommandDisconnect:
		a.teardown()
		a.setState(StateDisconnected)
	case cmd.Kind == CommandClose:
		a.teardown()
		a.setState(StateClosed)
	case cmd.Kind == CommandReconnect:
		a.teardown()
		a.setState(StateDisconnected)
		err = a.connect(ctx, a.target)
	default:
		err = newError(KindInvalidCommand, "unknown "+cmd.String(), nil)
	}

	incCommand(cmd, err)
	if err != nil {
		a.log.Warn("stream: command failed",
			zap.Stringer("command", cmd), zap.Stringer("state", a.State()), zap.Error(err))
	} else {
		a.log.Info("stream: command done",
			zap.Stringer("command", cmd), zap.Stringer("state", a.State()))
	}
	a.respond(ctx, err)
}

func (a *Actor[E]) respond(ctx context.Context, err error) {
	select {
	case a.responses <- err:
	case <-ctx.Done():
	case <-a.released:
	}
}

func (a *Actor[E]) connect(ctx context.Context, target string) error {
	if err := validateTarget(target); err != nil {
		return err
	}
	if a.dialer == nil {
		return newError(KindConnect, "no dialer configured", nil)
	}

	session := uuid.NewString()
	ctx, span := otel.Tracer("stream").Start(ctx, "stream.connect")
	span.SetAttributes(
		attribute.String("stream.target", target),
		attribute.String("stream.session_id", session),
		attribute.String("stream.mode", a.mode.String()),
	)
	defer span.End()

	start := time.Now()
	conn, err := a.dialer.Dial(ctx, target)
	dialDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "dial failed")
		return newError(KindConnect, target, err)
	}

	a.conn = conn
	a.target = target
	a.session = session
	a.log = a.base.WithContext(logger.ContextWithSession(ctx, session, target))
	a.setState(StateConnected)
	return nil
}

func validateTarget(target string) error {
	u, err := url.Parse(target)
	if err != nil {
		return newError(KindInvalidTarget, target, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return newError(KindInvalidTarget, fmt.Sprintf("%q: scheme must be ws or wss", target), nil)
	}
	if u.Host == "" {
		return newError(KindInvalidTarget, fmt.Sprintf("%q: missing host", target), nil)
	}
	return nil
}

func (a *Actor[E]) handleFrame(f Frame) {
	incFrame(f.Kind)

	switch f.Kind {
	case FrameText:
		stream, ev, err := a.route(f.Payload)
		if err != nil {
			a.log.Debug("stream: decode failed", zap.Error(err))
		}
		a.publish(Result[E]{
			Event: Event[E]{Stream: stream, Data: ev, ReceivedAt: a.now()},
			Err:   err,
		})

	case FrameBinary:
		a.publish(Result[E]{Err: newError(KindDecode, "binary frames are not supported", nil)})

	case FramePing:
		if err := a.conn.Send(Frame{Kind: FramePong, Payload: f.Payload}); err != nil {
			a.fail(newError(KindTransport, "pong", err))
			return
		}
		pongsTotal.Inc()

	case FramePong:
		// unsolicited pongs carry nothing for readers

	case FrameClose:
		a.fail(newError(KindPeerClosed, "", f.Err))

	case FrameError:
		a.fail(newError(KindTransport, "", f.Err))

	default:
		a.log.Warn("stream: unknown frame kind", zap.Int("kind", int(f.Kind)))
	}
}

// fail drops the socket after an in-stream failure and reports it to readers.
// The state flips before publishing so a reader woken by the error already
// observes Disconnected.
func (a *Actor[E]) fail(err *Error) {
	a.log.Warn("stream: connection lost", zap.Error(err))
	a.teardown()
	a.setState(StateDisconnected)
	a.publish(Result[E]{Err: err})
}

func (a *Actor[E]) publish(r Result[E]) {
	incPublished(r.Err)
	a.watch.publish(r)
}

func (a *Actor[E]) teardown() {
	if a.conn == nil {
		return
	}
	if err := a.conn.Close(); err != nil {
		a.log.Debug("stream: close handshake failed", zap.Error(err))
	}
	a.conn = nil
	a.log = a.base
}

func (a *Actor[E]) setState(s State) {
	a.state.Store(int32(s))
	stateGauge.Set(float64(s))
}

func (a *Actor[E]) shutdown() {
	a.teardown()
	a.setState(StateClosed)
	a.watch.close()
	close(a.responses)
	close(a.done)
}
