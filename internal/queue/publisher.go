package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking-core/internal/model"
)

// Publisher sends booking events to RabbitMQ.  The connection is opened on
// first use and re-dialled after it drops; each publish uses a short-lived
// channel.  Messages are persistent.
type Publisher struct {
	url string
	log *zap.Logger

	mu   sync.Mutex
	conn *amqp.Connection
}

// NewPublisher returns a Publisher for the broker at url.
func NewPublisher(url string, log *zap.Logger) *Publisher {
	return &Publisher{url: url, log: log}
}

// BookingHeld schedules a hold timeout message that the broker releases to
// the timeout queue once remaining has passed.
func (p *Publisher) BookingHeld(ctx context.Context, b model.Booking, remaining time.Duration) error {
	if b.HoldExpiresAt == nil {
		return nil
	}
	msg := HoldTimeoutMessage{
		MessageID:     uuid.NewString(),
		BookingID:     b.ID,
		HoldExpiresAt: b.HoldExpiresAt.UTC().Format(time.RFC3339),
	}
	return p.publish(ctx, HoldDelayQueue, msg, messageExpiration(remaining))
}

// messageExpiration renders a per-message TTL in milliseconds, rounded up
// so the timeout never arrives before the hold has ended.
func messageExpiration(d time.Duration) string {
	if d <= 0 {
		return "0"
	}
	ms := (d + time.Millisecond - 1) / time.Millisecond
	return strconv.FormatInt(int64(ms), 10)
}

// BookingConfirmed publishes a BookingConfirmedEvent.
func (p *Publisher) BookingConfirmed(ctx context.Context, b model.Booking) error {
	ev := BookingConfirmedEvent{
		MessageID:   uuid.NewString(),
		BookingID:   b.ID,
		UserID:      b.UserID,
		ShowID:      b.ShowID,
		SeatLabels:  b.SeatLabels,
		TotalAmount: b.TotalAmount,
		ConfirmedAt: time.Now().UTC().Format(time.RFC3339),
	}
	return p.publish(ctx, BookingConfirmedQueue, ev, "")
}

// BookingExpired publishes a BookingExpiredEvent.
func (p *Publisher) BookingExpired(ctx context.Context, b model.Booking) error {
	ev := BookingExpiredEvent{
		MessageID:  uuid.NewString(),
		BookingID:  b.ID,
		UserID:     b.UserID,
		ShowID:     b.ShowID,
		SeatLabels: b.SeatLabels,
		ExpiredAt:  time.Now().UTC().Format(time.RFC3339),
	}
	return p.publish(ctx, BookingExpiredQueue, ev, "")
}

// Close closes the broker connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil || p.conn.IsClosed() {
		return nil
	}
	return p.conn.Close()
}

func (p *Publisher) publish(ctx context.Context, queue string, message any, expiration string) error {
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	ch, err := p.channel()
	if err != nil {
		return err
	}
	defer func() { _ = ch.Close() }()

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Expiration:   expiration,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queue, false, false, pub); err != nil {
		return fmt.Errorf("publish to %s: %w", queue, err)
	}
	return nil
}

func (p *Publisher) channel() (*amqp.Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil || p.conn.IsClosed() {
		conn, err := amqp.Dial(p.url)
		if err != nil {
			return nil, fmt.Errorf("dial broker: %w", err)
		}
		p.conn = conn
		ch, err := conn.Channel()
		if err != nil {
			return nil, fmt.Errorf("open channel: %w", err)
		}
		if err := DeclareTopology(ch); err != nil {
			_ = ch.Close()
			return nil, fmt.Errorf("declare topology: %w", err)
		}
		p.log.Info("connected to broker")
		return ch, nil
	}
	ch, err := p.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	return ch, nil
}
