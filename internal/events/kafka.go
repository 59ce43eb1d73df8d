package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/example/ride-booking/internal/models"
)

// Publisher emits booking status changes.
type Publisher interface {
	Publish(ctx context.Context, ev models.BookingEvent) error
}

// KafkaProducer writes booking events keyed by booking id, so every event
// for one booking lands on the same partition in order.
type KafkaProducer struct {
	writer  *kafka.Writer
	timeout time.Duration
}

func NewKafkaProducer(brokers []string, topic string) *KafkaProducer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	return &KafkaProducer{writer: w, timeout: 2 * time.Second}
}

func (k *KafkaProducer) Publish(ctx context.Context, ev models.BookingEvent) error {
	b, err := Encode(ev)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, k.timeout)
	defer cancel()
	return k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.Booking.ID),
		Value: b,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(ev.Type)},
		},
	})
}

func (k *KafkaProducer) Close() error {
	if k.writer == nil {
		return nil
	}
	return k.writer.Close()
}

func Encode(ev models.BookingEvent) ([]byte, error) {
	b, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encode booking event: %w", err)
	}
	return b, nil
}

func Decode(b []byte) (models.BookingEvent, error) {
	var ev models.BookingEvent
	if err := json.Unmarshal(b, &ev); err != nil {
		return ev, fmt.Errorf("decode booking event: %w", err)
	}
	if ev.Booking.ID == "" || ev.Type == "" {
		return ev, fmt.Errorf("decode booking event: missing id or type")
	}
	return ev, nil
}

// Discard drops events when no broker is configured.
type Discard struct{}

func (Discard) Publish(context.Context, models.BookingEvent) error { return nil }
