// Package repository defines error types that are reused across the seat,
// booking and show stores. These sentinel values allow the service layer
// to distinguish between a missing record, a lost compare-and-swap and a
// storage failure without inspecting driver errors.
package repository

import "errors"

// ErrNotFound is returned when a show or booking lookup matches no row.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when an insert collides with a unique key, such
// as a second active booking for the same show and seat set.
var ErrConflict = errors.New("conflict")

// ErrSeatsNotHeld is returned by a confirmation when at least one seat is no
// longer held by the booking being confirmed.  Nothing is written.
var ErrSeatsNotHeld = errors.New("seats no longer held by booking")

// ErrStateChanged is returned by a confirmation when the booking left the
// PENDING state before the write.
var ErrStateChanged = errors.New("booking state changed")

// ErrHoldLapsed is returned by a confirmation when the hold expired before
// the write.
var ErrHoldLapsed = errors.New("hold lapsed")
