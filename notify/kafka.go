package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goGrant "github.com/MrEthical07/goGrant"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MailEventType is the ce_type header of every published message.
const MailEventType = "gogrant.mail.requested"

// MessageWriter is the subset of *kafka.Writer the notifier needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// MailMessage is the JSON value of each Kafka message.
type MailMessage struct {
	ID        string    `json:"id"`
	To        string    `json:"to"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Kafka publishes mail to a topic for a downstream mail service. Messages
// are keyed by recipient so one address keeps its ordering.
type Kafka struct {
	writer MessageWriter
	source string
	logger *zap.Logger
	now    func() time.Time
}

// NewKafkaWriter returns a synchronous writer that waits for all in-sync
// replicas.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
	}
}

func NewKafka(w MessageWriter, source string, logger *zap.Logger) (*Kafka, error) {
	if w == nil {
		return nil, errors.New("kafka writer is required")
	}
	if source == "" {
		source = "gogrant"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Kafka{
		writer: w,
		source: source,
		logger: logger.Named("notify.kafka"),
		now:    time.Now,
	}, nil
}

func (k *Kafka) Send(ctx context.Context, to, subject, body string) error {
	msg := MailMessage{
		ID:        uuid.NewString(),
		To:        to,
		Subject:   subject,
		Body:      body,
		CreatedAt: k.now().UTC(),
	}
	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode mail message: %w", err)
	}

	err = k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(to),
		Value: value,
		Headers: []kafka.Header{
			{Key: "ce_id", Value: []byte(msg.ID)},
			{Key: "ce_source", Value: []byte(k.source)},
			{Key: "ce_type", Value: []byte(MailEventType)},
			{Key: "ce_time", Value: []byte(msg.CreatedAt.Format(time.RFC3339))},
		},
	})
	if err != nil {
		k.logger.Error("publish mail failed", zap.String("message_id", msg.ID), zap.Error(err))
		return fmt.Errorf("publish mail: %w", err)
	}

	k.logger.Debug("mail published", zap.String("message_id", msg.ID))
	return nil
}

// Close flushes and closes the underlying writer.
func (k *Kafka) Close() error {
	return k.writer.Close()
}

var _ goGrant.Notifier = (*Kafka)(nil)
