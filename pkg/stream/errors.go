package stream

import (
	"errors"
	"fmt"
)

// Kind categorizes an Error.
type Kind int

const (
	KindUnknown Kind = iota
	// KindConnect: dial or handshake failed. Reported via Outcome.
	KindConnect
	// KindDecode: a frame could not be decoded. Published on the watch channel.
	KindDecode
	// KindPeerClosed: the peer sent a close frame. Published on the watch channel.
	KindPeerClosed
	// KindTransport: the socket failed mid-stream. Published on the watch channel.
	KindTransport
	// KindChannelClosed: the far end of the controller/actor link is gone.
	KindChannelClosed
	// KindInvalidCommand: the command is not accepted in the current state.
	KindInvalidCommand
	// KindInvalidTarget: the Connect target is not a ws/wss URL.
	KindInvalidTarget
)

func (k Kind) String() string {
	switch k {
	case KindConnect:
		return "connect_failed"
	case KindDecode:
		return "decode_error"
	case KindPeerClosed:
		return "peer_closed"
	case KindTransport:
		return "transport_error"
	case KindChannelClosed:
		return "channel_closed"
	case KindInvalidCommand:
		return "invalid_command"
	case KindInvalidTarget:
		return "invalid_target"
	default:
		return "unknown"
	}
}

// Error is the typed error used for Outcomes and watch-channel results.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("stream: %s: %s: %v", e.Kind, e.Msg, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("stream: %s: %v", e.Kind, e.Err)
	case e.Msg != "":
		return fmt.Sprintf("stream: %s: %s", e.Kind, e.Msg)
	default:
		return "stream: " + e.Kind.String()
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind, so errors.Is(err, ErrDecode) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

var (
	ErrConnect        = &Error{Kind: KindConnect}
	ErrDecode         = &Error{Kind: KindDecode}
	ErrPeerClosed     = &Error{Kind: KindPeerClosed}
	ErrTransport      = &Error{Kind: KindTransport}
	ErrChannelClosed  = &Error{Kind: KindChannelClosed}
	ErrInvalidCommand = &Error{Kind: KindInvalidCommand}
	ErrInvalidTarget  = &Error{Kind: KindInvalidTarget}
)

func newError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf returns the Kind of err, or KindUnknown if err is not an *Error.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnknown
}
