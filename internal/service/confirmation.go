package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking-core/internal/logger"
	"github.com/iliyamo/cinema-booking-core/internal/metrics"
	"github.com/iliyamo/cinema-booking-core/internal/model"
	"github.com/iliyamo/cinema-booking-core/internal/repository"
)

// ConfirmResult is the outcome of a successful confirmation.
type ConfirmResult struct {
	BookingID   uint64
	TotalAmount int64
}

// Confirmer turns a PENDING booking into a CONFIRMED one.
type Confirmer struct {
	deps Deps
}

// NewConfirmer wires a Confirmer.
func NewConfirmer(deps Deps) *Confirmer {
	return &Confirmer{deps: deps.withDefaults()}
}

// Confirm finalizes bookingID for userID.  The total is recomputed from the
// current show price.  Seats move to booked only if every one of them is
// still held by this booking; otherwise nothing changes, the booking is
// failed and HoldExpired is returned so the caller starts over.
func (c *Confirmer) Confirm(ctx context.Context, bookingID, userID uint64) (ConfirmResult, error) {
	log := logger.WithContext(ctx, c.deps.Logger).With(zap.Uint64("booking_id", bookingID), zap.Uint64("user_id", userID))

	b, err := c.deps.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ConfirmResult{}, fmt.Errorf("booking %d: %w", bookingID, ErrNotFound)
		}
		return ConfirmResult{}, fmt.Errorf("load booking %d: %w", bookingID, err)
	}
	if b.UserID != userID {
		return ConfirmResult{}, ErrForbidden
	}
	if b.Status != model.BookingPending {
		metrics.ConfirmsTotal.WithLabelValues(metrics.ResultInvalid).Inc()
		return ConfirmResult{}, ErrWrongState
	}
	now := c.deps.Clock.Now()
	if b.HoldExpired(now) {
		metrics.ConfirmsTotal.WithLabelValues(metrics.ResultExpired).Inc()
		return ConfirmResult{}, ErrHoldExpired
	}

	price, err := c.deps.Catalog.GetShowPrice(ctx, b.ShowID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ConfirmResult{}, fmt.Errorf("show %d: %w", b.ShowID, ErrNotFound)
		}
		return ConfirmResult{}, fmt.Errorf("load price: %w", err)
	}
	total := int64(len(b.SeatLabels)) * price
	if total < MinChargeableAmount {
		return ConfirmResult{}, ErrInvalidAmount
	}

	err = c.deps.Bookings.Confirm(ctx, model.Confirmation{
		BookingID:   b.ID,
		SeatIDs:     b.SeatIDs,
		TotalAmount: total,
		Now:         now,
	})
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrSeatsNotHeld):
		metrics.ConfirmsTotal.WithLabelValues(metrics.ResultExpired).Inc()
		log.Warn("confirm found seats no longer held; failing booking")
		c.abandon(ctx, b, log)
		return ConfirmResult{}, ErrHoldExpired
	case errors.Is(err, repository.ErrHoldLapsed):
		metrics.ConfirmsTotal.WithLabelValues(metrics.ResultExpired).Inc()
		return ConfirmResult{}, ErrHoldExpired
	case errors.Is(err, repository.ErrStateChanged):
		metrics.ConfirmsTotal.WithLabelValues(metrics.ResultInvalid).Inc()
		return ConfirmResult{}, ErrWrongState
	case errors.Is(err, repository.ErrNotFound):
		return ConfirmResult{}, fmt.Errorf("booking %d: %w", bookingID, ErrNotFound)
	default:
		metrics.ConfirmsTotal.WithLabelValues(metrics.ResultError).Inc()
		return ConfirmResult{}, fmt.Errorf("confirm booking %d: %w", bookingID, err)
	}

	b.Status = model.BookingConfirmed
	b.PaymentStatus = model.PaymentPaid
	b.TotalAmount = total
	b.HoldExpiresAt = nil
	c.deps.Notifier.SeatsChanged(ctx, b.ShowID)
	if err := c.deps.Events.BookingConfirmed(ctx, *b); err != nil {
		log.Warn("publish booking confirmed failed", zap.Error(err))
	}
	metrics.ConfirmsTotal.WithLabelValues(metrics.ResultOK).Inc()
	log.Info("booking confirmed", zap.Int64("total_amount", total))
	return ConfirmResult{BookingID: b.ID, TotalAmount: total}, nil
}

// abandon fails a booking that lost seats and frees whatever it still holds.
func (c *Confirmer) abandon(ctx context.Context, b *model.Booking, log *zap.Logger) {
	ctx = context.WithoutCancel(ctx)
	if _, err := c.deps.Seats.ReleaseHolder(ctx, b.ID); err != nil {
		log.Error("release seats of abandoned booking failed", zap.Error(err))
		return
	}
	failed, err := c.deps.Bookings.MarkFailed(ctx, b.ID)
	if err != nil {
		log.Error("fail abandoned booking failed", zap.Error(err))
		return
	}
	c.deps.Notifier.SeatsChanged(ctx, b.ShowID)
	if failed {
		b.Status = model.BookingFailed
		b.PaymentStatus = model.PaymentFailed
		if err := c.deps.Events.BookingExpired(ctx, *b); err != nil {
			log.Warn("publish booking expired failed", zap.Error(err))
		}
	}
}

// BookingReader answers read-only booking lookups for their owner.
type BookingReader struct {
	deps Deps
}

// NewBookingReader wires a BookingReader.
func NewBookingReader(deps Deps) *BookingReader {
	return &BookingReader{deps: deps.withDefaults()}
}

// Get returns bookingID if userID owns it.
func (r *BookingReader) Get(ctx context.Context, bookingID, userID uint64) (*model.Booking, error) {
	b, err := r.deps.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("booking %d: %w", bookingID, ErrNotFound)
		}
		return nil, fmt.Errorf("load booking %d: %w", bookingID, err)
	}
	if b.UserID != userID {
		return nil, ErrForbidden
	}
	return b, nil
}
