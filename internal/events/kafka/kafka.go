// Package kafka carries ledger events over a Kafka topic.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"kakebo/internal/events"
)

var (
	_ events.Publisher  = (*Publisher)(nil)
	_ events.Subscriber = (*Subscriber)(nil)
)

const retryDelay = 2 * time.Second

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Publisher struct {
	writer messageWriter
	topic  string
}

func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.LeastBytes{},
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
		},
		topic: topic,
	}
}

// Publish writes the event keyed by its routing key.
func (p *Publisher) Publish(ctx context.Context, e events.Event) error {
	data, err := e.Marshal()
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(e.RoutingKey()),
		Value: data,
		Time:  e.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("write kafka message: %w", err)
	}
	slog.DebugContext(ctx, "Published ledger event", "event_id", e.ID, "topic", p.topic, "routing_key", e.RoutingKey())
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

type Subscriber struct {
	reader messageReader
	topic  string
}

func NewSubscriber(brokers []string, topic, groupID string) *Subscriber {
	return &Subscriber{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MinBytes: 1,
			MaxBytes: 10e6,
		}),
		topic: topic,
	}
}

// Subscribe fetches and commits messages one by one. A handler error keeps
// the offset uncommitted and retries the same message.
func (s *Subscriber) Subscribe(ctx context.Context, h events.Handler) error {
	slog.InfoContext(ctx, "Started consuming ledger events", "topic", s.topic)
	for {
		msg, err := s.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				slog.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
				return ctx.Err()
			}
			return fmt.Errorf("fetch kafka message: %w", err)
		}

		if err := s.process(ctx, msg, h); err != nil {
			return err
		}
	}
}

func (s *Subscriber) process(ctx context.Context, msg kafka.Message, h events.Handler) error {
	e, err := events.Unmarshal(msg.Value)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to unmarshal message", "error", err, "offset", msg.Offset)
		return s.commit(ctx, msg)
	}

	for {
		err := h(ctx, e)
		if err == nil {
			return s.commit(ctx, msg)
		}
		slog.ErrorContext(ctx, "Failed to handle ledger event, retrying",
			"error", err,
			"event_id", e.ID,
			"offset", msg.Offset)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryDelay):
		}
	}
}

func (s *Subscriber) commit(ctx context.Context, msg kafka.Message) error {
	if err := s.reader.CommitMessages(ctx, msg); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("commit kafka message: %w", err)
	}
	return nil
}

func (s *Subscriber) Close() error {
	return s.reader.Close()
}
