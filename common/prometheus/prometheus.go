// Package prometheus exposes the process-wide metrics registry and its
// /metrics handler.
package prometheus

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// DefaultRegistry is where every package registers its collectors.
	DefaultRegistry prometheus.Registerer = prometheus.DefaultRegisterer

	// DefaultGatherer backs Handler.
	DefaultGatherer prometheus.Gatherer = prometheus.DefaultGatherer
)

// Handler serves DefaultGatherer in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(DefaultGatherer, promhttp.HandlerOpts{})
}

// Register adds c to DefaultRegistry. A collector that is already
// registered is not an error.
func Register(c prometheus.Collector) error {
	if err := DefaultRegistry.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return nil
		}
		return err
	}
	return nil
}

// MustRegisterMany registers every collector and panics on the first
// conflicting one.
func MustRegisterMany(cs ...prometheus.Collector) {
	for _, c := range cs {
		if err := Register(c); err != nil {
			panic(err)
		}
	}
}
