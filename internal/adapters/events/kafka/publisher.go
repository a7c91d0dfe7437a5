package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/SscSPs/wallet_ledger/internal/core/domain"
	"github.com/SscSPs/wallet_ledger/internal/core/ports"
	"github.com/segmentio/kafka-go"
)

// DefaultTopic receives ledger events when no topic is configured.
const DefaultTopic = "wallet_ledger_events"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes ledger events as JSON. Messages are keyed by account ID so
// one account's events stay in order on a single partition.
type Publisher struct {
	writer  messageWriter
	timeout time.Duration
}

// Ensure Publisher implements ports.EventPublisher
var _ ports.EventPublisher = (*Publisher)(nil)

// NewPublisher creates a Publisher writing to topic on brokers.
func NewPublisher(brokers []string, topic string) *Publisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return newPublisher(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
	})
}

func newPublisher(w messageWriter) *Publisher {
	return &Publisher{writer: w, timeout: 5 * time.Second}
}

func (p *Publisher) Publish(ctx context.Context, event domain.LedgerEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode ledger event %s: %w", event.EventID, err)
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.AccountID),
		Value: data,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to publish ledger event %s: %w", event.EventID, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
