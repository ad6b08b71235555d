package stream

import (
	"context"
	"sync"
)

// Controller is the caller-facing handle of an Actor. It only touches
// channels and is safe for concurrent use.
type Controller[E any] struct {
	commands  chan<- Command
	responses <-chan error
	watch     *watch[Result[E]]
	released  chan struct{}
	release   *sync.Once
	actor     *Actor[E]

	doMu sync.Mutex
	// stale counts outcomes owed to Do calls that gave up waiting.
	stale int
}

// SendCommand enqueues cmd. It blocks while a previous command is still
// waiting to be consumed.
func (c *Controller[E]) SendCommand(ctx context.Context, cmd Command) error {
	select {
	case <-c.actor.done:
		return newError(KindChannelClosed, "actor terminated", nil)
	case <-c.released:
		return newError(KindChannelClosed, "controller released", nil)
	default:
	}

	select {
	case c.commands <- cmd:
		return nil
	case <-c.actor.done:
		return newError(KindChannelClosed, "actor terminated", nil)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AwaitOutcome returns the Outcome of the oldest unanswered command.
func (c *Controller[E]) AwaitOutcome(ctx context.Context) error {
	_, err := c.await(ctx)
	return err
}

// await reports whether an Outcome was consumed, as opposed to ctx ending.
func (c *Controller[E]) await(ctx context.Context) (bool, error) {
	select {
	case err, ok := <-c.responses:
		if !ok {
			return false, newError(KindChannelClosed, "actor terminated without an outcome", nil)
		}
		return true, err
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Do sends cmd and waits for its Outcome. Concurrent Do calls are paired
// with their own outcomes, including after an earlier Do gave up on ctx:
// the late Outcome is discarded before the next command is sent. Mixing Do
// with raw SendCommand/AwaitOutcome from other goroutines is not supported.
func (c *Controller[E]) Do(ctx context.Context, cmd Command) error {
	c.doMu.Lock()
	defer c.doMu.Unlock()

	for c.stale > 0 {
		ok, err := c.await(ctx)
		if !ok {
			return err
		}
		c.stale--
	}

	if err := c.SendCommand(ctx, cmd); err != nil {
		return err
	}
	ok, err := c.await(ctx)
	if !ok && ctx.Err() != nil {
		c.stale++
	}
	return err
}

// Subscribe returns a new Receiver positioned at the current value.
func (c *Controller[E]) Subscribe() *Receiver[Result[E]] { return c.watch.subscribe() }

// Release drops the controller side; the actor tears down and exits.
func (c *Controller[E]) Release() {
	c.release.Do(func() { close(c.released) })
}

func (c *Controller[E]) State() State { return c.actor.State() }

// Done is closed when the actor has exited.
func (c *Controller[E]) Done() <-chan struct{} { return c.actor.done }
