package service

import (
	"errors"
	"fmt"
	"strings"
)

// Errors returned by the booking operations.  Handlers map them to HTTP
// statuses; everything else is an internal failure.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrWrongState   = errors.New("booking not in PENDING state")
	ErrHoldExpired  = errors.New("hold expired")

	// ErrInvalidAmount is an ErrInvalidInput.
	ErrInvalidAmount = fmt.Errorf("%w: total amount below minimum", ErrInvalidInput)
)

// InvalidSeatLabelError reports a label that is malformed or outside the
// hall grid.  It is an ErrInvalidInput.
type InvalidSeatLabelError struct {
	Label  string
	Reason string
}

func (e *InvalidSeatLabelError) Error() string {
	return fmt.Sprintf("invalid seat label %q: %s", e.Label, e.Reason)
}

func (e *InvalidSeatLabelError) Unwrap() error { return ErrInvalidInput }

// SeatsUnavailableError lists requested seats that are held or booked by
// another booking.
type SeatsUnavailableError struct {
	Labels []string
}

func (e *SeatsUnavailableError) Error() string {
	return "seats unavailable: " + strings.Join(e.Labels, ", ")
}
