// Package kafka defines the messaging contract used by the sinks. It does
// not depend on sarama; see kafka/producer for the implementation.
package kafka

import "context"

// Producer publishes messages to Kafka.
type Producer interface {
	// Publish delivers one message under the configured RequiredAcks policy,
	// retrying with back-off.
	Publish(ctx context.Context, topic string, key, value []byte) error
	// Ping checks cluster reachability by refreshing metadata.
	Ping(ctx context.Context) error
	Close() error
}
