// Package stream manages a single long-lived streaming socket.
//
// An Actor owns the transport and is the only writer of the connection
// State. A Controller talks to it over a command channel (capacity 1), a
// response channel carrying one Outcome per command, and a watch channel
// that always holds the latest decoded Result.
//
//	ctrl, actor := stream.New(stream.SingleStream, decode, stream.WithDialer(d))
//	go actor.Run(ctx)
//	if err := ctrl.Do(ctx, stream.Connect("wss://example/ws")); err != nil { ... }
//	rx := ctrl.Subscribe()
//	for rx.Changed(ctx) == nil {
//		res := rx.Borrow()
//		...
//	}
package stream
