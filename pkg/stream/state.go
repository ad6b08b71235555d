package stream

// State is the connection state owned by the Actor.
type State int32

const (
	// StateIdle is the initial state; only Connect is accepted.
	StateIdle State = iota
	// StateConnected means a live transport handle is held.
	StateConnected
	// StateDisconnected means the handle was dropped and a new Connect is required.
	StateDisconnected
	// StateClosed is terminal; the actor loop has exited.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}
