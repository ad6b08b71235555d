package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	prom "github.com/YaganovValera/analytics-system/stream-connector/common/prometheus"
)

var (
	once sync.Once

	// EventsTotal counts decoded events taken from the watch channel, by stream.
	EventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "connector",
		Subsystem: "pipeline",
		Name:      "events_total",
		Help:      "Decoded events received from the connection actor",
	}, []string{"stream"})

	// ErrorsTotal counts error results taken from the watch channel, by kind.
	ErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "connector",
		Subsystem: "pipeline",
		Name:      "errors_total",
		Help:      "Error results received from the connection actor",
	}, []string{"kind"})

	// SinkErrors counts failed deliveries, by sink.
	SinkErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "connector",
		Subsystem: "sink",
		Name:      "errors_total",
		Help:      "Failed sink deliveries",
	}, []string{"sink"})

	// SinkLatency is the time from receiving a frame to a completed sink delivery.
	SinkLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "connector",
		Subsystem: "sink",
		Name:      "latency_seconds",
		Help:      "Latency from frame receipt to completed delivery",
		Buckets:   prometheus.DefBuckets,
	}, []string{"sink"})

	// Reconnects counts reconnect cycles started by the supervisor, by outcome.
	Reconnects = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "connector",
		Subsystem: "supervisor",
		Name:      "reconnects_total",
		Help:      "Reconnect cycles started by the supervisor",
	}, []string{"result"})
)

// Register adds every collector to the process registry. Safe to call repeatedly.
func Register() {
	once.Do(func() {
		prom.MustRegisterMany(
			EventsTotal,
			ErrorsTotal,
			SinkErrors,
			SinkLatency,
			Reconnects,
		)
	})
}
