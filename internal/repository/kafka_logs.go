package repository

import (
	"context"

	xkafka "PolyCorr/pkg/kafka"
)

// KafkaLogPublisher ships aggregated log batches to the logs topic. It
// satisfies the logger collector's Publisher interface.
type KafkaLogPublisher struct {
	producer *xkafka.Producer
}

func NewKafkaLogPublisher(producer *xkafka.Producer) *KafkaLogPublisher {
	return &KafkaLogPublisher{producer: producer}
}

func (p *KafkaLogPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return p.producer.Publish(ctx, topic, nil, payload)
}
