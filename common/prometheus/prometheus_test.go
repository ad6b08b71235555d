package prometheus

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestRegisterTwice(t *testing.T) {
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "prom_test_register_twice_total", Help: "test"})
	if err := Register(c); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	if err := Register(c); err != nil {
		t.Fatalf("second Register: %v", err)
	}
	c.Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "prom_test_register_twice_total 1") {
		t.Fatalf("metric missing from handler output")
	}
}

func TestMustRegisterManyConflict(t *testing.T) {
	a := prometheus.NewCounter(prometheus.CounterOpts{Name: "prom_test_conflict", Help: "a"})
	b := prometheus.NewGauge(prometheus.GaugeOpts{Name: "prom_test_conflict", Help: "b"})
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on conflicting collector")
		}
	}()
	MustRegisterMany(a, b)
}
