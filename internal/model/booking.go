package model

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"
)

// Booking statuses stored in bookings.status.
const (
	BookingPending   = "PENDING"
	BookingConfirmed = "CONFIRMED"
	BookingCancelled = "CANCELLED"
	BookingFailed    = "FAILED"
)

// Payment statuses stored in bookings.payment_status.
const (
	PaymentNotInitiated = "NOT_INITIATED"
	PaymentPaid         = "PAID"
	PaymentFailed       = "FAILED"
	PaymentRefunded     = "REFUNDED"
)

// Booking records one reservation attempt by one user for one show.
//
// Fields:
//  ID            – primary key identifier.
//  UserID        – user that created the hold.
//  ShowID        – show being booked.
//  SeatLabels    – requested labels in request order.
//  SeatIDs       – show_seats ids claimed for this booking.
//  Status        – PENDING, CONFIRMED, CANCELLED or FAILED.
//  TotalAmount   – seat count times the show price.
//  PaymentStatus – NOT_INITIATED, PAID, FAILED or REFUNDED.
//  HoldExpiresAt – end of the hold window; nil once resolved.
type Booking struct {
	ID            uint64     // bookings.id
	UserID        uint64     // bookings.user_id
	ShowID        uint64     // bookings.show_id
	SeatLabels    []string   // bookings.seat_labels
	SeatIDs       []uint64   // booking_seats.seat_id
	Status        string     // bookings.status
	TotalAmount   int64      // bookings.total_amount
	PaymentStatus string     // bookings.payment_status
	HoldExpiresAt *time.Time // bookings.hold_expires_at (nullable)
	CreatedAt     time.Time  // bookings.created_at
	UpdatedAt     time.Time  // bookings.updated_at
}

// HoldExpired reports whether the hold window is over at now.  The expiry
// instant itself counts as expired.
func (b *Booking) HoldExpired(now time.Time) bool {
	return b.HoldExpiresAt != nil && !now.Before(*b.HoldExpiresAt)
}

// BookingSeat links a booking to one claimed seat record.
type BookingSeat struct {
	SeatID uint64 // booking_seats.seat_id
	Label  string // booking_seats.seat_label
}

// Confirmation carries everything the booking store needs to finalize a
// PENDING booking in one transaction.
type Confirmation struct {
	BookingID   uint64
	SeatIDs     []uint64
	TotalAmount int64
	Now         time.Time
}

// SeatSetKey returns a stable digest of a seat label set.  Two bookings of
// the same show with the same labels, in any order, share a key.
func SeatSetKey(labels []string) string {
	sorted := append([]string(nil), labels...)
	sort.Strings(sorted)
	sum := sha256.Sum256([]byte(strings.Join(sorted, ",")))
	return hex.EncodeToString(sum[:])
}
