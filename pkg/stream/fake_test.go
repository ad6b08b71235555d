package stream

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"
)

type fakeConn struct {
	frames chan Frame
	sent   chan Frame

	mu      sync.Mutex
	closed  int
	sendErr error
}

func newFakeConn() *fakeConn {
	return &fakeConn{frames: make(chan Frame, 16), sent: make(chan Frame, 16)}
}

func (c *fakeConn) Frames() <-chan Frame { return c.frames }

func (c *fakeConn) Send(f Frame) error {
	c.mu.Lock()
	err := c.sendErr
	c.mu.Unlock()
	if err != nil {
		return err
	}
	c.sent <- f
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed++
	return nil
}

func (c *fakeConn) closeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type fakeDialer struct {
	mu      sync.Mutex
	err     error
	conns   []*fakeConn
	targets []string
}

func (d *fakeDialer) Dial(_ context.Context, target string) (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.targets = append(d.targets, target)
	if d.err != nil {
		return nil, d.err
	}
	c := newFakeConn()
	d.conns = append(d.conns, c)
	return c, nil
}

func (d *fakeDialer) setErr(err error) {
	d.mu.Lock()
	d.err = err
	d.mu.Unlock()
}

func (d *fakeDialer) last() *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.conns) == 0 {
		return nil
	}
	return d.conns[len(d.conns)-1]
}

func (d *fakeDialer) dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.targets)
}

// gatedDialer holds every Dial until open is closed, then fails it.
type gatedDialer struct {
	open chan struct{}
}

func (d *gatedDialer) Dial(ctx context.Context, _ string) (Conn, error) {
	select {
	case <-d.open:
		return nil, errors.New("dial refused")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type quote struct {
	Price float64
}

// decodeQuote maps {"price":"100.5"} to quote{Price: 100.5}.
func decodeQuote(b []byte) (quote, error) {
	var raw struct {
		Price string `json:"price"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return quote{}, err
	}
	if raw.Price == "" {
		return quote{}, errors.New("missing price")
	}
	p, err := strconv.ParseFloat(raw.Price, 64)
	if err != nil {
		return quote{}, err
	}
	return quote{Price: p}, nil
}

// harness runs an actor for the duration of a test.
type harness struct {
	ctrl   *Controller[quote]
	actor  *Actor[quote]
	dialer *fakeDialer
	runErr chan error
	cancel context.CancelFunc
}

func start(t *testing.T, mode Mode) *harness {
	t.Helper()
	d := &fakeDialer{}
	ctrl, actor := New(mode, decodeQuote, WithDialer(d))
	ctx, cancel := context.WithCancel(context.Background())
	h := &harness{ctrl: ctrl, actor: actor, dialer: d, runErr: make(chan error, 1), cancel: cancel}
	go func() { h.runErr <- actor.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-actor.Done()
	})
	return h
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func (h *harness) mustDo(t *testing.T, cmd Command) {
	t.Helper()
	if err := h.ctrl.Do(testCtx(t), cmd); err != nil {
		t.Fatalf("%s: unexpected outcome: %v", cmd, err)
	}
}

func expectKind(t *testing.T, err error, want *Error) {
	t.Helper()
	if !errors.Is(err, want) {
		t.Fatalf("error = %v; want kind %s", err, want.Kind)
	}
}
