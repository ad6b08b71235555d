// Package wsconn implements stream.Dialer and stream.Conn on gorilla/websocket.
//
// Pings are forwarded to the actor as frames instead of being answered by
// the library, so the actor stays the only writer of the socket.
package wsconn

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/YaganovValera/analytics-system/stream-connector/common/logger"
	"github.com/YaganovValera/analytics-system/stream-connector/pkg/stream"
)

// Dialer opens gorilla websocket connections.
type Dialer struct {
	cfg Config
	ws  *websocket.Dialer
	log *logger.Logger
}

var _ stream.Dialer = (*Dialer)(nil)

// NewDialer creates a Dialer. A nil log is replaced by a no-op logger.
func NewDialer(cfg Config, log *logger.Logger) (*Dialer, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Dialer{
		cfg: cfg,
		ws: &websocket.Dialer{
			Proxy:            websocket.DefaultDialer.Proxy,
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
		log: log.Named("wsconn"),
	}, nil
}

// Dial performs the websocket handshake and starts the read pump.
func (d *Dialer) Dial(ctx context.Context, target string) (stream.Conn, error) {
	ws, resp, err := d.ws.DialContext(ctx, target, d.cfg.Header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("wsconn: dial %s: %w (status %d)", target, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("wsconn: dial %s: %w", target, err)
	}
	d.log.Debug("wsconn: connected", zap.String("url", target))
	return newConn(ws, d.cfg, d.log.With(zap.String("url", target))), nil
}

type conn struct {
	ws  *websocket.Conn
	cfg Config
	log *logger.Logger

	frames    chan stream.Frame
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

func newConn(ws *websocket.Conn, cfg Config, log *logger.Logger) *conn {
	c := &conn{
		ws:     ws,
		cfg:    cfg,
		log:    log,
		frames: make(chan stream.Frame, cfg.BufferSize),
		done:   make(chan struct{}),
	}
	ws.SetReadLimit(cfg.ReadLimit)
	ws.SetPingHandler(func(p string) error {
		c.extendDeadline()
		c.emit(stream.Frame{Kind: stream.FramePing, Payload: []byte(p)})
		return nil
	})
	ws.SetPongHandler(func(p string) error {
		c.extendDeadline()
		c.emit(stream.Frame{Kind: stream.FramePong, Payload: []byte(p)})
		return nil
	})
	// The echo is written by Close; ReadMessage surfaces a *CloseError.
	ws.SetCloseHandler(func(int, string) error { return nil })

	go c.readPump()
	return c
}

func (c *conn) Frames() <-chan stream.Frame { return c.frames }

func (c *conn) readPump() {
	defer close(c.frames)
	for {
		c.extendDeadline()
		typ, data, err := c.ws.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				return
			default:
			}
			var ce *websocket.CloseError
			if errors.As(err, &ce) {
				c.emit(stream.Frame{Kind: stream.FrameClose, Err: ce})
			} else {
				c.emit(stream.Frame{Kind: stream.FrameError, Err: err})
			}
			return
		}
		switch typ {
		case websocket.TextMessage:
			c.emit(stream.Frame{Kind: stream.FrameText, Payload: data})
		case websocket.BinaryMessage:
			c.emit(stream.Frame{Kind: stream.FrameBinary, Payload: data})
		}
	}
}

func (c *conn) emit(f stream.Frame) {
	select {
	case c.frames <- f:
	case <-c.done:
	}
}

func (c *conn) extendDeadline() {
	if c.cfg.ReadTimeout > 0 {
		_ = c.ws.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
	}
}

// Send writes f. Control frames go through WriteControl.
func (c *conn) Send(f stream.Frame) error {
	deadline := time.Now().Add(c.cfg.WriteTimeout)
	switch f.Kind {
	case stream.FramePong:
		return c.ws.WriteControl(websocket.PongMessage, f.Payload, deadline)
	case stream.FramePing:
		return c.ws.WriteControl(websocket.PingMessage, f.Payload, deadline)
	case stream.FrameClose:
		return c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, string(f.Payload)), deadline)
	case stream.FrameText, stream.FrameBinary:
		typ := websocket.TextMessage
		if f.Kind == stream.FrameBinary {
			typ = websocket.BinaryMessage
		}
		if err := c.ws.SetWriteDeadline(deadline); err != nil {
			return err
		}
		return c.ws.WriteMessage(typ, f.Payload)
	default:
		return fmt.Errorf("wsconn: cannot send %s frame", f.Kind)
	}
}

// Close sends a normal-closure frame and closes the socket. Repeated calls
// return the first result.
func (c *conn) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		werr := c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(c.cfg.WriteTimeout))
		if errors.Is(werr, websocket.ErrCloseSent) {
			werr = nil
		}
		cerr := c.ws.Close()
		switch {
		case werr != nil:
			c.closeErr = fmt.Errorf("wsconn: close handshake: %w", werr)
		case cerr != nil:
			c.closeErr = fmt.Errorf("wsconn: close: %w", cerr)
		}
		c.log.Debug("wsconn: closed", zap.Error(c.closeErr))
	})
	return c.closeErr
}
