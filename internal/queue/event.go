// Package queue defines message payloads exchanged over the message broker.
package queue

// Queue, exchange and routing key names.
const (
	BookingConfirmedQueue = "booking.confirmed"
	BookingExpiredQueue   = "booking.expired"

	// Hold timeouts go to HoldDelayQueue with a per-message TTL equal to the
	// hold window; the broker dead-letters them through HoldTimeoutExchange
	// into HoldTimeoutQueue when the hold ends.
	HoldDelayQueue        = "booking.hold.delay"
	HoldTimeoutExchange   = "booking.hold.exchange"
	HoldTimeoutQueue      = "booking.hold.timeout"
	HoldTimeoutRoutingKey = "booking.hold.timeout"
)

// BookingConfirmedEvent is published when a booking is confirmed.  It
// carries enough for downstream consumers to log or notify without
// querying the primary database.
type BookingConfirmedEvent struct {
	MessageID   string   `json:"message_id"`
	BookingID   uint64   `json:"booking_id"`
	UserID      uint64   `json:"user_id"`
	ShowID      uint64   `json:"show_id"`
	SeatLabels  []string `json:"seats"`
	TotalAmount int64    `json:"total_amount"`
	ConfirmedAt string   `json:"confirmed_at"`
}

// BookingExpiredEvent is published when a PENDING booking is failed
// because its hold lapsed or its seats were lost.
type BookingExpiredEvent struct {
	MessageID  string   `json:"message_id"`
	BookingID  uint64   `json:"booking_id"`
	UserID     uint64   `json:"user_id"`
	ShowID     uint64   `json:"show_id"`
	SeatLabels []string `json:"seats"`
	ExpiredAt  string   `json:"expired_at"`
}

// HoldTimeoutMessage asks the consumer to expire one booking once its hold
// window is over.
type HoldTimeoutMessage struct {
	MessageID     string `json:"message_id"`
	BookingID     uint64 `json:"booking_id"`
	HoldExpiresAt string `json:"hold_expires_at"`
}
