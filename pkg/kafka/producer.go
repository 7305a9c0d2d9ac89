// Package kafka publishes engagement events to Kafka.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/Ramsey-B/fern/pkg/events"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Config holds Kafka configuration
type Config struct {
	Brokers []string
	Topic   string
}

// ParseConfig parses a comma-separated broker string
func ParseConfig(brokers string, topic string) Config {
	brokerList := strings.Split(brokers, ",")
	for i := range brokerList {
		brokerList[i] = strings.TrimSpace(brokerList[i])
	}

	return Config{
		Brokers: brokerList,
		Topic:   topic,
	}
}

// Producer publishes engagement events to a single topic.
type Producer struct {
	writer *kafka.Writer
	logger ectologger.Logger
	topic  string
}

// NewProducer creates a new Kafka producer
func NewProducer(cfg Config, logger ectologger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Async:        false,
		// Allow Kafka to auto-create the topic in dev environments when it doesn't exist yet.
		// Without this, a first publish may fail with "Unknown Topic Or Partition".
		AllowAutoTopicCreation: true,
	}

	return &Producer{
		writer: writer,
		logger: logger,
		topic:  cfg.Topic,
	}
}

// Close closes the producer
func (p *Producer) Close() error {
	return p.writer.Close()
}

// Emit implements events.Emitter.
func (p *Producer) Emit(ctx context.Context, evt *events.EngagementEvent) error {
	if evt == nil {
		return fmt.Errorf("engagement event is nil")
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}

	ctx, span := tracing.StartSpan(ctx, "Kafka.Emit")
	defer span.End()

	span.SetAttributes(
		attribute.String("messaging.system", "kafka"),
		attribute.String("messaging.destination", p.topic),
		attribute.String("messaging.operation", "publish"),
		attribute.String("event.type", evt.Type),
	)

	evt.TraceID = tracing.GetTraceID(ctx)
	evt.SpanID = tracing.GetSpanID(ctx)

	data, err := json.Marshal(evt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to marshal event")
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	// Key by profile so a profile's events stay ordered within a partition.
	key := strconv.FormatInt(evt.ProfileID, 10)

	headers := []kafka.Header{
		{Key: "type", Value: []byte(evt.Type)},
		{Key: "profile_id", Value: []byte(key)},
	}
	if evt.RunID != "" {
		headers = append(headers, kafka.Header{Key: "run_id", Value: []byte(evt.RunID)})
	}
	if traceparent := tracing.GetTraceParent(ctx); traceparent != "" {
		headers = append(headers, kafka.Header{Key: "traceparent", Value: []byte(traceparent)})
	}

	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(key),
		Value:   data,
		Headers: headers,
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to publish event")
		p.logger.WithContext(ctx).WithError(err).Errorf("Failed to publish event to Kafka topic %s", p.topic)
		return err
	}

	span.SetStatus(codes.Ok, "event published")
	p.logger.WithContext(ctx).Debugf("Published %s event to Kafka: profile=%d", evt.Type, evt.ProfileID)
	return nil
}

// Stats returns producer statistics
func (p *Producer) Stats() kafka.WriterStats {
	return p.writer.Stats()
}
