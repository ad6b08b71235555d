// Package sink delivers decoded stream events to Kafka and Redis.
package sink

import (
	"context"
	"time"

	"github.com/YaganovValera/analytics-system/stream-connector/pkg/binance"
)

// Record is one delivered event. It is marshalled as JSON by every sink.
type Record struct {
	Stream     string        `json:"stream"`
	Type       string        `json:"type"`
	Symbol     string        `json:"symbol,omitempty"`
	EventTime  time.Time     `json:"event_time"`
	ReceivedAt time.Time     `json:"received_at"`
	Data       binance.Event `json:"data"`
}

// Sink is a delivery target.
type Sink interface {
	Name() string
	Handle(ctx context.Context, rec Record) error
}
