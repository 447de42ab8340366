package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// HoldExpirer expires a single booking whose hold window is over.
type HoldExpirer interface {
	ExpireBooking(ctx context.Context, bookingID uint64) (bool, error)
}

// Consumer listens to booking.confirmed and booking.hold.timeout.  Confirmed
// bookings are appended to <LogDir>/booking.log; hold timeouts are handed to
// the HoldExpirer.
type Consumer struct {
	URL     string
	LogDir  string
	Expirer HoldExpirer
	Log     *zap.Logger
}

// Run connects to the broker and consumes until ctx is cancelled.  Lost
// connections are re-dialled with exponential backoff capped at 30s.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			c.Log.Warn("consumer: dial broker failed", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return nil
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			c.Log.Info("consumer stopped")
			return nil
		}
		c.Log.Warn("consumer: consume loop ended; reconnecting", zap.Error(err))
		if !sleep(ctx, 2*time.Second) {
			return nil
		}
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.Log.Warn("consumer: set QoS failed", zap.Error(err))
	}
	if err := DeclareTopology(ch); err != nil {
		return fmt.Errorf("declare topology: %w", err)
	}

	confirmed, err := ch.Consume(BookingConfirmedQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", BookingConfirmedQueue, err)
	}
	timeouts, err := ch.Consume(HoldTimeoutQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", HoldTimeoutQueue, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-confirmed:
			if !ok {
				return errors.New("confirmed deliveries channel closed")
			}
			c.settle(d, c.HandleConfirmed(d.Body))
		case d, ok := <-timeouts:
			if !ok {
				return errors.New("timeout deliveries channel closed")
			}
			c.settle(d, c.HandleHoldTimeout(ctx, d.Body))
		}
	}
}

func (c *Consumer) settle(d amqp.Delivery, err error) {
	if err != nil {
		c.Log.Warn("consumer: handle message failed", zap.String("queue", d.RoutingKey), zap.Error(err))
		_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
		return
	}
	_ = d.Ack(false)
}

// HandleHoldTimeout expires the booking named by a HoldTimeoutMessage.
func (c *Consumer) HandleHoldTimeout(ctx context.Context, body []byte) error {
	var msg HoldTimeoutMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if msg.BookingID == 0 {
		return errors.New("hold timeout without booking id")
	}
	expired, err := c.Expirer.ExpireBooking(ctx, msg.BookingID)
	if err != nil {
		return err
	}
	if expired {
		c.Log.Info("hold expired by timeout message", zap.Uint64("booking_id", msg.BookingID))
	}
	return nil
}

// HandleConfirmed appends a BookingConfirmedEvent to booking.log as one line.
func (c *Consumer) HandleConfirmed(body []byte) error {
	var ev BookingConfirmedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	dir := c.LogDir
	if dir == "" {
		dir = "logs"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, "booking.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	line := fmt.Sprintf("[%s] Booking confirmed | booking_id=%d | user_id=%d | show_id=%d | total=%d | seats=[%s]\n",
		ev.ConfirmedAt, ev.BookingID, ev.UserID, ev.ShowID, ev.TotalAmount, strings.Join(ev.SeatLabels, ","))
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
