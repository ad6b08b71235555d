// Package ctxkeys holds the context keys shared by the logger, tracing and
// the stream session bookkeeping.
package ctxkeys

type contextKey string

const (
	TraceIDKey   contextKey = "trace_id"
	RequestIDKey contextKey = "request_id"

	// SessionIDKey identifies one socket lifetime of a stream actor.
	SessionIDKey contextKey = "session_id"
	// StreamKey carries the stream target the session is bound to.
	StreamKey contextKey = "stream"
)
