package sink

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/YaganovValera/analytics-system/stream-connector/common/kafka"
	"github.com/YaganovValera/analytics-system/stream-connector/common/logger"
)

// KafkaSink publishes each record as JSON keyed by stream name.
type KafkaSink struct {
	producer kafka.Producer
	topic    string
	log      *logger.Logger
}

func NewKafkaSink(p kafka.Producer, topic string, log *logger.Logger) *KafkaSink {
	return &KafkaSink{producer: p, topic: topic, log: log.Named("kafka-sink")}
}

func (k *KafkaSink) Name() string { return "kafka" }

func (k *KafkaSink) Handle(ctx context.Context, rec Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("kafka sink: marshal: %w", err)
	}
	log := k.log.WithContext(ctx).With(zap.String("topic", k.topic), zap.String("stream", rec.Stream))
	if err := k.producer.Publish(ctx, k.topic, []byte(rec.Stream), payload); err != nil {
		log.Warn("record not published", zap.Int("bytes", len(payload)), zap.Error(err))
		return fmt.Errorf("kafka sink: publish to %s: %w", k.topic, err)
	}
	log.Debug("record published", zap.Int("bytes", len(payload)))
	return nil
}
