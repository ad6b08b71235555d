package stream

import (
	"context"
	"sync"
	"sync/atomic"
)

// watch is a single-producer latest-value cell. Every publish bumps the
// version and wakes all waiters by closing the current notify channel.
type watch[T any] struct {
	mu      sync.RWMutex
	value   T
	version uint64
	notify  chan struct{}
	closed  bool
}

func newWatch[T any]() *watch[T] {
	return &watch[T]{notify: make(chan struct{})}
}

func (w *watch[T]) publish(v T) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.value = v
	w.version++
	close(w.notify)
	w.notify = make(chan struct{})
}

func (w *watch[T]) close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.closed = true
	close(w.notify)
}

func (w *watch[T]) subscribe() *Receiver[T] {
	w.mu.RLock()
	defer w.mu.RUnlock()
	r := &Receiver[T]{w: w}
	r.seen.Store(w.version)
	return r
}

// Receiver is an independent read handle on a watch channel. Slow readers
// skip intermediate values; only the latest one is ever observable.
type Receiver[T any] struct {
	w    *watch[T]
	seen atomic.Uint64
}

// Changed blocks until a value newer than the last seen one is published,
// then marks it seen. It returns ErrChannelClosed once the publisher is gone
// and nothing new is pending, or ctx.Err() on cancellation.
func (r *Receiver[T]) Changed(ctx context.Context) error {
	for {
		r.w.mu.RLock()
		version, closed, notify := r.w.version, r.w.closed, r.w.notify
		r.w.mu.RUnlock()

		if version != r.seen.Load() {
			r.seen.Store(version)
			return nil
		}
		if closed {
			return newError(KindChannelClosed, "watch publisher dropped", nil)
		}
		select {
		case <-notify:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Borrow returns the latest value and marks it seen.
func (r *Receiver[T]) Borrow() T {
	r.w.mu.RLock()
	defer r.w.mu.RUnlock()
	r.seen.Store(r.w.version)
	return r.w.value
}

// Peek returns the latest value without touching the change marker.
func (r *Receiver[T]) Peek() T {
	r.w.mu.RLock()
	defer r.w.mu.RUnlock()
	return r.w.value
}

// HasChanged reports whether a value newer than the last seen one exists.
func (r *Receiver[T]) HasChanged() bool {
	r.w.mu.RLock()
	defer r.w.mu.RUnlock()
	return r.w.version != r.seen.Load()
}

// Version is the number of values published so far.
func (r *Receiver[T]) Version() uint64 {
	r.w.mu.RLock()
	defer r.w.mu.RUnlock()
	return r.w.version
}

// Clone returns a new Receiver sharing this one's change marker position.
func (r *Receiver[T]) Clone() *Receiver[T] {
	c := &Receiver[T]{w: r.w}
	c.seen.Store(r.seen.Load())
	return c
}
