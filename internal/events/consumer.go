package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"live-transcriber/internal/models"
)

// Sink receives display updates read from Kafka.
type Sink interface {
	Publish(u models.DisplayUpdate)
}

// ConsumerConfig holds Kafka consumer configuration.
type ConsumerConfig struct {
	Brokers  []string
	Topic    string
	Lookback time.Duration // Replay this much history on start, 0 = only new messages
}

// Consumer replays display updates published by Publisher into local sinks.
type Consumer struct {
	reader   *kafka.Reader
	lookback time.Duration
	sinks    []Sink
}

// NewConsumer creates a partition-0 reader without a consumer group, so every
// viewer sees every update.
func NewConsumer(cfg ConsumerConfig, sinks ...Sink) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:   cfg.Brokers,
		Topic:     cfg.Topic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  10e6,
	})
	return &Consumer{reader: reader, lookback: cfg.Lookback, sinks: sinks}
}

// Run reads until ctx is done.
func (c *Consumer) Run(ctx context.Context) error {
	if c.lookback > 0 {
		if err := c.reader.SetOffsetAt(ctx, time.Now().Add(-c.lookback)); err != nil {
			log.Warn().Err(err).Msg("Failed to seek, reading new messages only")
		}
	}

	log.Info().
		Str("topic", c.reader.Config().Topic).
		Dur("lookback", c.lookback).
		Msg("Consuming display updates")

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Error().Err(err).Msg("Kafka read error")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}

		u, err := decodeUpdate(msg)
		if err != nil {
			log.Warn().Err(err).Int64("offset", msg.Offset).Msg("Skipping malformed display update")
			continue
		}
		for _, s := range c.sinks {
			s.Publish(u)
		}
	}
}

// Close closes the reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

func decodeUpdate(msg kafka.Message) (models.DisplayUpdate, error) {
	var u models.DisplayUpdate
	if err := json.Unmarshal(msg.Value, &u); err != nil {
		return u, fmt.Errorf("decode display update: %w", err)
	}
	if u.EventType == "" {
		u.EventType = headerValue(msg, "eventType")
	}
	if u.EventType == "" {
		return u, errors.New("display update without event type")
	}
	return u, nil
}
