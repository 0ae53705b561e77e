// Package events publishes display updates to Kafka for remote viewers.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"live-transcriber/internal/models"
	"live-transcriber/internal/observability/metrics"
)

const sinkName = "kafka"

// Publisher publishes display updates to a Kafka topic keyed by session ID.
// With Kafka disabled it only logs.
type Publisher struct {
	writer    *kafka.Writer
	principal string
	topic     string
	enabled   bool
	metrics   *metrics.Metrics
}

// Config holds Kafka publisher configuration.
type Config struct {
	Brokers   []string
	Topic     string
	Principal string
	Enabled   bool
}

// New creates a new Kafka display publisher.
func New(cfg *Config) *Publisher {
	m := metrics.DefaultMetrics

	if cfg == nil {
		log.Info().Msg("Kafka disabled (nil config), using log-only mode")
		return &Publisher{
			enabled: false,
			metrics: m,
		}
	}

	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info().Msg("Kafka disabled, using log-only mode")
		return &Publisher{
			principal: cfg.Principal,
			topic:     cfg.Topic,
			enabled:   false,
			metrics:   m,
		}
	}

	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}

	transport := &kafka.Transport{
		Dial: dialer.DialFunc,
	}

	// Async so a slow broker never stalls the session controller.
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Async:        true,
		Transport:    transport,
		Completion: func(messages []kafka.Message, err error) {
			for _, msg := range messages {
				m.RecordDisplayPublish(sinkName, headerValue(msg, "eventType"), err, 0)
			}
			if err != nil {
				log.Error().Err(err).Int("messages", len(messages)).Msg("Failed to write to Kafka")
			}
		},
	}

	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topic", cfg.Topic).
		Str("principal", cfg.Principal).
		Msg("Kafka display publisher initialized")

	return &Publisher{
		writer:    writer,
		principal: cfg.Principal,
		topic:     cfg.Topic,
		enabled:   true,
		metrics:   m,
	}
}

// Publish implements display.Sink.
func (p *Publisher) Publish(u models.DisplayUpdate) {
	if err := p.PublishUpdate(context.Background(), u); err != nil {
		log.Error().Err(err).Str("eventType", u.EventType).Msg("Failed to publish display update")
	}
}

// PublishUpdate enqueues one display update.
func (p *Publisher) PublishUpdate(ctx context.Context, u models.DisplayUpdate) error {
	start := time.Now()

	payload, err := json.Marshal(u)
	if err != nil {
		log.Error().Err(err).Str("topic", p.topic).Msg("Failed to marshal event")
		p.metrics.RecordDisplayPublish(sinkName, u.EventType, err, time.Since(start).Seconds())
		return err
	}

	log.Debug().
		Str("principal", p.principal).
		Str("topic", p.topic).
		Str("key", u.SessionID).
		RawJSON("payload", payload).
		Msg("Publishing display update")

	if !p.enabled || p.writer == nil {
		p.metrics.RecordDisplayPublish(sinkName, u.EventType, nil, time.Since(start).Seconds())
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(u.SessionID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(u.EventType)},
			{Key: "principal", Value: []byte(p.principal)},
		},
	}

	// Async writer: errors arrive through Completion.
	return p.writer.WriteMessages(ctx, msg)
}

// Close flushes and closes the Kafka writer.
func (p *Publisher) Close() error {
	if p.writer == nil {
		return nil
	}
	if err := p.writer.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing Kafka writer")
		return err
	}
	return nil
}

func headerValue(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
