package stream

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	commandsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "connector", Subsystem: "stream", Name: "commands_total",
		Help: "Commands consumed by the connection actor",
	}, []string{"command", "result"})

	framesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "connector", Subsystem: "stream", Name: "frames_total",
		Help: "Transport frames received, by kind",
	}, []string{"kind"})

	publishedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "connector", Subsystem: "stream", Name: "published_total",
		Help: "Results published on the watch channel, by error kind (ok for success)",
	}, []string{"kind"})

	pongsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "connector", Subsystem: "stream", Name: "pongs_total",
		Help: "Pong frames written in reply to pings",
	})

	dialDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "connector", Subsystem: "stream", Name: "dial_duration_seconds",
		Help:    "Time spent dialing the endpoint",
		Buckets: prometheus.DefBuckets,
	})

	stateGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "connector", Subsystem: "stream", Name: "state",
		Help: "Current connection state (0=idle, 1=connected, 2=disconnected, 3=closed)",
	})
)

// RegisterMetrics registers the actor metrics with r. Safe to call repeatedly.
func RegisterMetrics(r prometheus.Registerer) {
	once.Do(func() {
		collectors := []prometheus.Collector{
			commandsTotal, framesTotal, publishedTotal, pongsTotal, dialDuration, stateGauge,
		}
		for _, c := range collectors {
			_ = r.Register(c)
		}
	})
}

func incCommand(cmd Command, err error) {
	result := "ok"
	if err != nil {
		result = KindOf(err).String()
	}
	commandsTotal.WithLabelValues(cmd.Kind.String(), result).Inc()
}

func incFrame(k FrameKind) { framesTotal.WithLabelValues(k.String()).Inc() }

func incPublished(err error) {
	kind := "ok"
	if err != nil {
		kind = KindOf(err).String()
	}
	publishedTotal.WithLabelValues(kind).Inc()
}
