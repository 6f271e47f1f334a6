// Package events publishes committed booking changes to Kafka.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/pkordes/unit-booking/internal/domain"
)

// ErrPublisherClosed is returned by PublishBookingEvent after Close.
var ErrPublisherClosed = errors.New("events: publisher closed")

// messageWriter is the subset of *kafka.Writer the publisher needs.
// Tests substitute an in-memory fake.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Message is the JSON body written for every booking event.
type Message struct {
	Type           domain.EventType `json:"type"`
	BookingID      string           `json:"booking_id"`
	GuestName      string           `json:"guest_name"`
	UnitID         string           `json:"unit_id"`
	CheckInDate    string           `json:"check_in_date"`
	CheckOutDate   string           `json:"check_out_date"`
	NumberOfNights int              `json:"number_of_nights"`
	AddedNights    int              `json:"added_nights,omitempty"`
	OccurredAt     time.Time        `json:"occurred_at"`
}

// KafkaPublisher writes booking events to a single topic. Messages are keyed
// by unit id so all changes to one unit land on the same partition in order.
type KafkaPublisher struct {
	writer messageWriter
	topic  string

	mu     sync.RWMutex
	closed bool
}

// NewKafkaPublisher builds a publisher for topic on brokers.
func NewKafkaPublisher(brokers []string, topic string, log *slog.Logger) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("events.NewKafkaPublisher: at least one broker is required")
	}
	if topic == "" {
		return nil, fmt.Errorf("events.NewKafkaPublisher: topic cannot be empty")
	}
	if log == nil {
		log = slog.Default()
	}

	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		MaxAttempts:            3,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...any) {
			log.Error(fmt.Sprintf(msg, args...), "component", "kafka")
		}),
	}
	return newPublisher(w, topic), nil
}

func newPublisher(w messageWriter, topic string) *KafkaPublisher {
	return &KafkaPublisher{writer: w, topic: topic}
}

// PublishBookingEvent encodes e and writes it synchronously.
func (p *KafkaPublisher) PublishBookingEvent(ctx context.Context, e domain.BookingEvent) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPublisherClosed
	}

	value, err := json.Marshal(newMessage(e))
	if err != nil {
		return fmt.Errorf("events.KafkaPublisher.Publish: encode: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(e.Booking.UnitID),
		Value: value,
		Time:  e.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(e.Type)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("events.KafkaPublisher.Publish: topic %s: %w", p.topic, err)
	}
	return nil
}

// Close flushes pending writes and releases the connection. It is safe to call
// more than once.
func (p *KafkaPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.writer.Close()
}

func newMessage(e domain.BookingEvent) Message {
	b := e.Booking
	return Message{
		Type:           e.Type,
		BookingID:      b.ID.String(),
		GuestName:      b.GuestName,
		UnitID:         b.UnitID,
		CheckInDate:    b.CheckInDate.Format(time.DateOnly),
		CheckOutDate:   b.CheckOutDate().Format(time.DateOnly),
		NumberOfNights: b.NumberOfNights,
		AddedNights:    e.AddedNights,
		OccurredAt:     e.OccurredAt,
	}
}
