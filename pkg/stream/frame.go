package stream

import "context"

// FrameKind distinguishes transport events.
type FrameKind int

const (
	FrameText FrameKind = iota + 1
	FrameBinary
	FramePing
	FramePong
	FrameClose
	FrameError
)

func (k FrameKind) String() string {
	switch k {
	case FrameText:
		return "text"
	case FrameBinary:
		return "binary"
	case FramePing:
		return "ping"
	case FramePong:
		return "pong"
	case FrameClose:
		return "close"
	case FrameError:
		return "error"
	default:
		return "unknown"
	}
}

// Frame is one transport event. Err is set only for FrameError (and may
// carry the close reason for FrameClose).
type Frame struct {
	Kind    FrameKind
	Payload []byte
	Err     error
}

// Conn is a live duplex socket. Frames is closed when the socket stops
// reading. Send and Close are only ever called from the actor goroutine.
type Conn interface {
	Frames() <-chan Frame
	Send(f Frame) error
	Close() error
}

// Dialer opens a Conn to target.
type Dialer interface {
	Dial(ctx context.Context, target string) (Conn, error)
}

// DialerFunc adapts a function to Dialer.
type DialerFunc func(ctx context.Context, target string) (Conn, error)

func (f DialerFunc) Dial(ctx context.Context, target string) (Conn, error) { return f(ctx, target) }
