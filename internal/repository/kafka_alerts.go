package repository

import (
	"context"
	"fmt"

	"PolyCorr/internal/domain/models"
	xkafka "PolyCorr/pkg/kafka"
)

// KafkaAlerts publishes correlation alerts to the alerts topic, keyed by
// the market pair so consumers see one partition per pair.
type KafkaAlerts struct {
	producer *xkafka.Producer
	topic    string
}

func NewKafkaAlerts(producer *xkafka.Producer, topic string) *KafkaAlerts {
	return &KafkaAlerts{producer: producer, topic: topic}
}

func (p *KafkaAlerts) Publish(ctx context.Context, c *models.Correlation) error {
	if c == nil {
		return nil
	}
	key := []byte(fmt.Sprintf("%s|%s", c.MarketIDA, c.MarketIDB))
	if err := p.producer.Publish(ctx, p.topic, key, c); err != nil {
		return fmt.Errorf("publish alert %s: %w", c.CorrelationID, err)
	}
	return nil
}

func (p *KafkaAlerts) Close() error {
	return p.producer.Close()
}
