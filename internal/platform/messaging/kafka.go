package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	contractsv1 "beacon/contracts/gen/events/v1"
)

// KafkaPublisher writes envelopes to Kafka, one topic per event type.
// The partition key keeps deliveries for one correlation ordered.
type KafkaPublisher struct {
	writer *kafka.Writer
	logger *slog.Logger
}

func NewKafkaPublisher(brokers []string, logger *slog.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.LeastBytes{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
		},
		logger: logger,
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, topic string, envelope contractsv1.Envelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal envelope %s: %w", envelope.EventID, err)
	}

	key := envelope.PartitionKey
	if key == "" {
		key = envelope.EventID
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(envelope.EventID)},
			{Key: "event_type", Value: []byte(envelope.EventType)},
			{Key: "trace_id", Value: []byte(envelope.TraceID)},
		},
	})
	if err != nil {
		return fmt.Errorf("write kafka message %s: %w", envelope.EventID, err)
	}

	if p.logger != nil {
		p.logger.Info("event published",
			"event", "kafka_publish",
			"module", "internal/platform/messaging",
			"layer", "platform",
			"topic", topic,
			"event_id", envelope.EventID,
			"event_type", envelope.EventType,
		)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// KafkaSubscriber runs one reader loop per subscribed topic and hands
// decoded envelopes to the receiver. An offset is committed only once the
// receiver has accepted that message; a failing receiver is retried in place
// and the reader fetches nothing further on the topic until it succeeds, so a
// transient store outage stalls the topic instead of skipping the event.
type KafkaSubscriber struct {
	brokers   []string
	logger    *slog.Logger
	retryWait time.Duration
}

func NewKafkaSubscriber(brokers []string, logger *slog.Logger) *KafkaSubscriber {
	return &KafkaSubscriber{brokers: brokers, logger: logger, retryWait: time.Second}
}

func (s *KafkaSubscriber) Subscribe(
	ctx context.Context,
	topic string,
	consumerGroup string,
	receiver Receiver,
) error {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: s.brokers,
		Topic:   topic,
		GroupID: consumerGroup,
	})

	go func() {
		defer reader.Close()

		for {
			msg, err := reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				if s.logger != nil {
					s.logger.Error("kafka fetch failed",
						"event", "kafka_fetch_failed",
						"module", "internal/platform/messaging",
						"layer", "platform",
						"topic", topic,
						"consumer_group", consumerGroup,
						"error", err.Error(),
					)
				}
				continue
			}

			var envelope contractsv1.Envelope
			if err := json.Unmarshal(msg.Value, &envelope); err != nil {
				if s.logger != nil {
					s.logger.Error("kafka message decode failed",
						"event", "kafka_decode_failed",
						"module", "internal/platform/messaging",
						"layer", "platform",
						"topic", topic,
						"error", err.Error(),
					)
				}
				_ = reader.CommitMessages(ctx, msg)
				continue
			}

			if err := s.deliver(ctx, topic, consumerGroup, receiver, envelope); err != nil {
				return
			}
			_ = reader.CommitMessages(ctx, msg)
		}
	}()
	return nil
}

// deliver blocks until the receiver accepts the envelope or the context ends.
// Committing a later offset on the partition would silently skip the failed
// message, so the caller must not fetch again until this returns nil.
func (s *KafkaSubscriber) deliver(
	ctx context.Context,
	topic string,
	consumerGroup string,
	receiver Receiver,
	envelope contractsv1.Envelope,
) error {
	for {
		err := receiver(ctx, envelope)
		if err == nil {
			return nil
		}
		if s.logger != nil {
			s.logger.Error("kafka receiver failed, will retry",
				"event", "kafka_consume_failed",
				"module", "internal/platform/messaging",
				"layer", "platform",
				"topic", topic,
				"consumer_group", consumerGroup,
				"event_id", envelope.EventID,
				"event_type", envelope.EventType,
				"error", err.Error(),
			)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.retryWait):
		}
	}
}
