package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking-core/internal/model"
)

// SeatStore owns per-show seat state.  Every mutation is conditional on
// the current status and holder.
type SeatStore interface {
	// Claim marks a seat held by claim.Holder, creating it when absent.
	// ok is false when another booking won the seat.
	Claim(ctx context.Context, claim model.SeatClaim) (seatID uint64, ok bool, err error)
	FindTaken(ctx context.Context, showID uint64, labels []string) ([]model.ShowSeat, error)
	ReleaseHolder(ctx context.Context, holder uint64) (int64, error)
	ReleaseSeat(ctx context.Context, seatID, holder uint64) (bool, error)
	ListHeld(ctx context.Context) ([]model.ShowSeat, error)
	ListByShow(ctx context.Context, showID uint64) ([]model.ShowSeat, error)
}

// BookingStore owns booking records.
type BookingStore interface {
	Create(ctx context.Context, b *model.Booking) error
	AttachSeats(ctx context.Context, bookingID uint64, seats []model.BookingSeat) error
	Delete(ctx context.Context, id uint64) error
	GetByID(ctx context.Context, id uint64) (*model.Booking, error)
	ListByIDs(ctx context.Context, ids []uint64) ([]model.Booking, error)
	ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]model.Booking, error)
	MarkFailed(ctx context.Context, id uint64) (bool, error)
	// Confirm finalizes the booking and its seats atomically.
	Confirm(ctx context.Context, c model.Confirmation) error
	PurgeExpiredPending(ctx context.Context, cutoff time.Time) (int64, error)
}

// Catalog supplies show geometry and price.
type Catalog interface {
	GetShowGeometry(ctx context.Context, showID uint64) (model.ShowGeometry, error)
	GetShowPrice(ctx context.Context, showID uint64) (int64, error)
}

// EventPublisher announces booking lifecycle changes.  Publishing is best
// effort; callers log failures and carry on.  BookingHeld gets the time
// left on the hold as measured by the service clock.
type EventPublisher interface {
	BookingHeld(ctx context.Context, b model.Booking, remaining time.Duration) error
	BookingConfirmed(ctx context.Context, b model.Booking) error
	BookingExpired(ctx context.Context, b model.Booking) error
}

// SeatChangeNotifier is told whenever seats of a show changed state, so
// read caches can drop their copy of the grid.
type SeatChangeNotifier interface {
	SeatsChanged(ctx context.Context, showID uint64)
}

// Deps bundles the collaborators shared by the booking services.
type Deps struct {
	Seats    SeatStore
	Bookings BookingStore
	Catalog  Catalog
	Clock    Clock
	Events   EventPublisher
	Notifier SeatChangeNotifier
	Logger   *zap.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Clock == nil {
		d.Clock = SystemClock{}
	}
	if d.Events == nil {
		d.Events = NoopPublisher{}
	}
	if d.Notifier == nil {
		d.Notifier = noopNotifier{}
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return d
}

// NoopPublisher drops every event.  It is used when the broker is disabled.
type NoopPublisher struct{}

func (NoopPublisher) BookingHeld(context.Context, model.Booking, time.Duration) error { return nil }
func (NoopPublisher) BookingConfirmed(context.Context, model.Booking) error          { return nil }
func (NoopPublisher) BookingExpired(context.Context, model.Booking) error            { return nil }

type noopNotifier struct{}

func (noopNotifier) SeatsChanged(context.Context, uint64) {}
