// Package events publishes quote refresh notifications
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/bobmcallan/brokeclub/internal/common"
	"github.com/bobmcallan/brokeclub/internal/interfaces"
	"github.com/bobmcallan/brokeclub/internal/models"
)

// messageWriter is the subset of *kafka.Writer the publisher needs
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes QuoteRefreshedEvents as JSON, keyed by ticker so a
// symbol's updates stay ordered within a partition.
type KafkaPublisher struct {
	w      messageWriter
	topic  string
	logger *common.Logger
}

// NewKafkaPublisher creates a publisher for the brokers and topic
func NewKafkaPublisher(brokers []string, topic string, logger *common.Logger) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           50 * time.Millisecond,
		Transport:              &kafka.Transport{DialTimeout: 10 * time.Second},
	}
	return &KafkaPublisher{w: w, topic: topic, logger: logger}
}

// encode builds the Kafka message for an event
func encode(event models.QuoteRefreshedEvent) (kafka.Message, error) {
	b, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:   []byte(event.Ticker),
		Value: b,
		Time:  event.AsOf,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte("quote.refreshed")},
			{Key: "reason", Value: []byte(event.Reason)},
		},
	}, nil
}

func (p *KafkaPublisher) PublishQuoteRefreshed(ctx context.Context, event models.QuoteRefreshedEvent) error {
	msg, err := encode(event)
	if err != nil {
		return fmt.Errorf("failed to encode quote event: %w", err)
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", p.topic, err)
	}
	p.logger.Trace().Str("ticker", event.Ticker).Str("topic", p.topic).Msg("Published quote refreshed event")
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}

// NoopPublisher discards events when no brokers are configured
type NoopPublisher struct{}

func (NoopPublisher) PublishQuoteRefreshed(context.Context, models.QuoteRefreshedEvent) error {
	return nil
}

func (NoopPublisher) Close() error { return nil }

// NewPublisher returns a Kafka publisher when brokers are configured,
// otherwise a no-op publisher
func NewPublisher(config common.EventsConfig, logger *common.Logger) interfaces.EventPublisher {
	if len(config.KafkaBrokers) == 0 {
		return NoopPublisher{}
	}
	logger.Info().Strs("brokers", config.KafkaBrokers).Str("topic", config.KafkaTopic).Msg("Kafka event publisher enabled")
	return NewKafkaPublisher(config.KafkaBrokers, config.KafkaTopic, logger)
}

var (
	_ interfaces.EventPublisher = (*KafkaPublisher)(nil)
	_ interfaces.EventPublisher = NoopPublisher{}
)
