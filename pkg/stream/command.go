package stream

import "fmt"

// CommandKind tags a Command.
type CommandKind int

const (
	CommandConnect CommandKind = iota + 1
	CommandDisconnect
	CommandClose
	CommandReconnect
)

func (k CommandKind) String() string {
	switch k {
	case CommandConnect:
		return "connect"
	case CommandDisconnect:
		return "disconnect"
	case CommandClose:
		return "close"
	case CommandReconnect:
		return "reconnect"
	default:
		return fmt.Sprintf("command_%d", int(k))
	}
}

// Command is sent by the Controller and consumed exactly once by the Actor.
type Command struct {
	Kind   CommandKind
	Target string // Connect only
}

// Connect opens a socket to target.
func Connect(target string) Command { return Command{Kind: CommandConnect, Target: target} }

// Disconnect drops the socket and leaves the actor reusable.
func Disconnect() Command { return Command{Kind: CommandDisconnect} }

// Close drops the socket and terminates the actor loop.
func Close() Command { return Command{Kind: CommandClose} }

// Reconnect drops the socket, if any, and dials the last known target.
func Reconnect() Command { return Command{Kind: CommandReconnect} }

func (c Command) String() string {
	if c.Kind == CommandConnect {
		return fmt.Sprintf("connect(%s)", c.Target)
	}
	return c.Kind.String()
}
