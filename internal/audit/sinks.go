package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/twmb/franz-go/pkg/kgo"
)

// ErrQueueFull is returned when the worker inbox cannot take more events.
var ErrQueueFull = errors.New("audit queue full")

// Producer is the slice of *kgo.Client the Kafka sink uses.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Close()
}

// KafkaSink writes events as JSON records keyed by node id.
type KafkaSink struct {
	producer Producer
	topic    string
}

// NewKafkaSink connects a franz-go client to brokers.
func NewKafkaSink(brokers []string, topic string) (*KafkaSink, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return NewKafkaSinkWithProducer(client, topic), nil
}

// NewKafkaSinkWithProducer wraps an existing producer.
func NewKafkaSinkWithProducer(p Producer, topic string) *KafkaSink {
	return &KafkaSink{producer: p, topic: topic}
}

func (k *KafkaSink) Append(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode audit event: %w", err)
	}
	record := &kgo.Record{
		Topic: k.topic,
		Key:   []byte(strconv.FormatInt(event.NodeID, 10)),
		Value: payload,
		Headers: []kgo.RecordHeader{
			{Key: "action", Value: []byte(event.Action)},
		},
	}
	if err := k.producer.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}

func (k *KafkaSink) Close() {
	k.producer.Close()
}

// LogSink writes events to the structured log. Used when Kafka is not configured.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (l *LogSink) Append(ctx context.Context, event Event) error {
	l.logger.InfoContext(ctx, "audit event",
		"action", string(event.Action),
		"actor_id", event.ActorID,
		"node_id", event.NodeID,
		"count", event.Count,
		"request_id", event.RequestID,
	)
	return nil
}

// QueueSink hands events to a Worker without blocking the caller.
type QueueSink struct {
	inbox chan<- Event
}

func NewQueueSink(inbox chan<- Event) *QueueSink {
	return &QueueSink{inbox: inbox}
}

func (q *QueueSink) Append(_ context.Context, event Event) error {
	select {
	case q.inbox <- event:
		return nil
	default:
		return ErrQueueFull
	}
}
