// Package common holds process-wide helpers shared by the connector's
// subsystems.
package common

import (
	"github.com/YaganovValera/analytics-system/stream-connector/common/backoff"
	producer "github.com/YaganovValera/analytics-system/stream-connector/common/kafka/producer"
)

// ServiceNameKey is the metrics label carrying the service name.
const ServiceNameKey = "service"

// InitServiceName sets the service label used by backoff and Kafka producer
// metrics. Call it from main before any retry or publish happens.
func InitServiceName(name string) {
	backoff.SetServiceLabel(name)
	producer.SetServiceLabel(name)
}
