package httpserver

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/YaganovValera/analytics-system/stream-connector/common/logger"
)

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}
	if err := cfg.validate(); err == nil {
		t.Fatal("empty Addr accepted")
	}
	cfg.applyDefaults()
	if cfg.MetricsPath != "/metrics" || cfg.HealthzPath != "/healthz" || cfg.ReadyzPath != "/readyz" {
		t.Errorf("unexpected paths %+v", cfg)
	}
	if cfg.ShutdownTimeout != 5*time.Second {
		t.Errorf("ShutdownTimeout = %v; want 5s", cfg.ShutdownTimeout)
	}
}

func TestMux_Probes(t *testing.T) {
	cfg := Config{Addr: ":0"}
	cfg.applyDefaults()

	var notReady error = errors.New("not connected")
	check := func() error { return notReady }
	extra := map[string]http.Handler{
		"/panic": http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }),
	}
	h := newHandler(cfg, check, logger.NewNop(), extra)

	cases := []struct {
		path string
		want int
	}{
		{"/healthz", http.StatusOK},
		{"/readyz", http.StatusServiceUnavailable},
		{"/metrics", http.StatusOK},
		{"/panic", http.StatusInternalServerError},
	}
	for _, c := range cases {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, c.path, nil))
		if rec.Code != c.want {
			t.Errorf("GET %s = %d; want %d", c.path, rec.Code, c.want)
		}
	}

	notReady = nil
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	body, _ := io.ReadAll(rec.Body)
	if rec.Code != http.StatusOK || string(body) != "READY" {
		t.Errorf("ready probe = %d %q", rec.Code, body)
	}
}

func TestStart_StopsOnCancel(t *testing.T) {
	srv, err := New(Config{Addr: "127.0.0.1:0"}, nil, logger.NewNop(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Start returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}
