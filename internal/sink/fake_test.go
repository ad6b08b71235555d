package sink

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/YaganovValera/analytics-system/stream-connector/common/logger"
	"github.com/YaganovValera/analytics-system/stream-connector/common/redis"
	"github.com/YaganovValera/analytics-system/stream-connector/pkg/binance"
	"github.com/YaganovValera/analytics-system/stream-connector/pkg/stream"
)

type fakeConn struct {
	frames chan stream.Frame
}

func newFakeConn() *fakeConn { return &fakeConn{frames: make(chan stream.Frame, 16)} }

func (c *fakeConn) Frames() <-chan stream.Frame { return c.frames }
func (c *fakeConn) Send(stream.Frame) error      { return nil }
func (c *fakeConn) Close() error                 { return nil }

func (c *fakeConn) text(s string) { c.frames <- stream.Frame{Kind: stream.FrameText, Payload: []byte(s)} }

// recorder is a Sink that forwards every record to a channel.
type recorder struct {
	name string
	err  error
	got  chan Record
}

func newRecorder(name string, err error) *recorder {
	return &recorder{name: name, err: err, got: make(chan Record, 16)}
}

func (r *recorder) Name() string { return r.name }

func (r *recorder) Handle(_ context.Context, rec Record) error {
	r.got <- rec
	return r.err
}

func (r *recorder) next(t *testing.T) Record {
	t.Helper()
	select {
	case rec := <-r.got:
		return rec
	case <-time.After(2 * time.Second):
		t.Fatalf("%s: no record delivered", r.name)
		return Record{}
	}
}

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
	err  error
}

func newMemCache() *memCache { return &memCache{data: make(map[string][]byte)} }

func (m *memCache) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, redis.ErrNotFound
	}
	return v, nil
}

func (m *memCache) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.data[key] = value
	return nil
}

func (m *memCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memCache) Ping(context.Context) error { return nil }
func (m *memCache) Close() error               { return nil }

var errSink = errors.New("sink down")

// pipeline runs a connected actor over a fakeConn and returns the pieces.
type pipeline struct {
	ctrl *stream.Controller[binance.Event]
	conn *fakeConn
}

func startPipeline(t *testing.T, mode stream.Mode, target string) *pipeline {
	t.Helper()
	conn := newFakeConn()
	dialer := stream.DialerFunc(func(context.Context, string) (stream.Conn, error) { return conn, nil })
	ctrl, actor := stream.New(mode, binance.DecodeEvent,
		stream.WithDialer(dialer),
		stream.WithLogger(logger.NewNop()),
	)
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = actor.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-actor.Done()
	})

	cmdCtx, cmdCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cmdCancel()
	if err := ctrl.Do(cmdCtx, stream.Connect(target)); err != nil {
		t.Fatalf("connect: %v", err)
	}
	return &pipeline{ctrl: ctrl, conn: conn}
}
