package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"ms-registration/internal/logger"
	"ms-registration/internal/models"
)

// MessageWriter is the subset of *kafka.Writer the producer uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	Writer MessageWriter
	Topic  string
	Logger *logger.Logger
}

func NewProducer(brokers []string, topic string, log *logger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
	return &Producer{Writer: writer, Topic: topic, Logger: log}
}

// PublishRegistrationCreated streams a new registration to Kafka, keyed by
// registration id.
func (p *Producer) PublishRegistrationCreated(ctx context.Context, event models.RegistrationCreatedEvent) error {
	msgBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode registration %d: %w", event.RegistrationID, err)
	}

	if p.Logger != nil {
		p.Logger.LogKafka("PUBLISH", p.Topic, fmt.Sprintf("registration %d for event %d", event.RegistrationID, event.EventID))
	}

	return p.Writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatInt(event.RegistrationID, 10)),
		Value: msgBytes,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(EventRegistrationCreated)},
		},
	})
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}
