package model

import (
	"fmt"
	"time"
)

// Seat statuses stored in show_seats.status.
const (
	SeatAvailable = "available"
	SeatHeld      = "held"
	SeatBooked    = "booked"
)

// Seat types stored in show_seats.seat_type.
const (
	SeatTypeRegular = "regular"
	SeatTypePremium = "premium"
)

// ShowSeat is the state of one physical seat for one show.  Records are
// created lazily the first time a seat is held, so a seat with no record
// is available.
//
// Fields:
//  ID        – primary key identifier.
//  ShowID    – show the seat belongs to.
//  Row       – row letter (A, B, ...).
//  Col       – 1-based column.
//  Label     – "<Row>-<Col>", e.g. "B-5".
//  SeatType  – regular or premium.
//  Status    – available, held or booked.
//  HeldBy    – booking currently holding the seat (nil unless held).
//  BookedBy  – booking that owns the seat (nil unless booked).
type ShowSeat struct {
	ID        uint64    // show_seats.id
	ShowID    uint64    // show_seats.show_id
	Row       string    // show_seats.row_label
	Col       int       // show_seats.col_no
	Label     string    // show_seats.seat_label
	SeatType  string    // show_seats.seat_type
	Status    string    // show_seats.status
	HeldBy    *uint64   // show_seats.held_by (nullable)
	BookedBy  *uint64   // show_seats.booked_by (nullable)
	CreatedAt time.Time // show_seats.created_at
	UpdatedAt time.Time // show_seats.updated_at
}

// SeatPosition addresses a seat inside a hall grid.
type SeatPosition struct {
	Row string
	Col int
}

// Label renders the position in the "<Row>-<Col>" form used by clients.
func (p SeatPosition) Label() string {
	return fmt.Sprintf("%s-%d", p.Row, p.Col)
}

// SeatClaim asks the seat store to mark one seat of a show as held by
// Holder, creating the record when it does not exist yet.
type SeatClaim struct {
	ShowID   uint64
	Position SeatPosition
	Holder   uint64
}
