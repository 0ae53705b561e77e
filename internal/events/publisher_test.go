package events

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"

	"live-transcriber/internal/models"
)

func TestNew_DisabledMode(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
	}{
		{"nil config", nil},
		{"disabled", &Config{Enabled: false, Brokers: []string{"localhost:9092"}}},
		{"no brokers", &Config{Enabled: true, Brokers: []string{}}},
		{"empty brokers", &Config{Enabled: true, Brokers: nil}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(tt.cfg)
			if p == nil {
				t.Fatal("expected non-nil publisher")
			}
			if p.enabled {
				t.Error("expected publisher to be disabled")
			}
			if p.writer != nil {
				t.Error("expected nil writer when disabled")
			}
		})
	}
}

func TestNew_ConfigValues(t *testing.T) {
	p := New(&Config{
		Enabled:   false,
		Brokers:   []string{"localhost:9092"},
		Topic:     "test.display",
		Principal: "test-principal",
	})

	if p.principal != "test-principal" {
		t.Errorf("expected principal 'test-principal', got %s", p.principal)
	}
	if p.topic != "test.display" {
		t.Errorf("expected topic 'test.display', got %s", p.topic)
	}
}

func TestNew_EnabledBuildsAsyncWriter(t *testing.T) {
	p := New(&Config{
		Enabled: true,
		Brokers: []string{"localhost:9092"},
		Topic:   "test.display",
	})
	defer p.Close()

	if !p.enabled || p.writer == nil {
		t.Fatal("expected enabled publisher with writer")
	}
	if !p.writer.Async {
		t.Error("expected async writer")
	}
	if p.writer.Topic != "test.display" {
		t.Errorf("expected writer topic 'test.display', got %s", p.writer.Topic)
	}
}

func TestPublisher_PublishUpdate_Disabled(t *testing.T) {
	p := New(&Config{Enabled: false, Topic: "test.display", Principal: "test-svc"})

	err := p.PublishUpdate(context.Background(), models.DisplayUpdate{
		EventType: models.EventDisplay,
		SessionID: "sess-1",
		Text:      "hello world ",
	})
	if err != nil {
		t.Errorf("expected no error when disabled, got %v", err)
	}

	// Publish swallows errors; must not panic.
	p.Publish(models.DisplayUpdate{EventType: models.EventClear})
}

func TestPublisher_Close_NoWriter(t *testing.T) {
	p := New(&Config{Enabled: false})

	if err := p.Close(); err != nil {
		t.Errorf("expected no error closing disabled publisher, got %v", err)
	}
}

func TestHeaderValue(t *testing.T) {
	msg := kafka.Message{Headers: []kafka.Header{
		{Key: "principal", Value: []byte("svc")},
		{Key: "eventType", Value: []byte(models.EventStatus)},
	}}

	if got := headerValue(msg, "eventType"); got != models.EventStatus {
		t.Errorf("expected %s, got %s", models.EventStatus, got)
	}
	if got := headerValue(msg, "missing"); got != "" {
		t.Errorf("expected empty value, got %s", got)
	}
}
