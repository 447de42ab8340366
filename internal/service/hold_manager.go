package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking-core/internal/logger"
	"github.com/iliyamo/cinema-booking-core/internal/metrics"
	"github.com/iliyamo/cinema-booking-core/internal/model"
	"github.com/iliyamo/cinema-booking-core/internal/repository"
)

// MinChargeableAmount is the smallest total a booking may carry.
const MinChargeableAmount int64 = 1

// HoldConfig bounds the hold window a caller may ask for.
type HoldConfig struct {
	DefaultMinutes int
	MaxMinutes     int
}

// HoldRequest asks for a set of seats of one show.  HoldMinutes of zero
// selects the configured default.
type HoldRequest struct {
	ShowID      uint64
	UserID      uint64
	Seats       []string
	HoldMinutes int
}

// HoldResult describes a successful hold.
type HoldResult struct {
	BookingID     uint64
	HoldMinutes   int
	HoldExpiresAt time.Time
	ExpiresIn     int64
	TotalAmount   int64
}

// HoldManager reserves seats for a short window.  Exclusivity comes from
// the per-seat compare-and-swap in the seat store, never from a lock here.
type HoldManager struct {
	deps Deps
	cfg  HoldConfig
}

// NewHoldManager wires a HoldManager.
func NewHoldManager(deps Deps, cfg HoldConfig) *HoldManager {
	if cfg.DefaultMinutes <= 0 {
		cfg.DefaultMinutes = 10
	}
	if cfg.MaxMinutes < cfg.DefaultMinutes {
		cfg.MaxMinutes = cfg.DefaultMinutes
	}
	return &HoldManager{deps: deps.withDefaults(), cfg: cfg}
}

// CreateHold validates the request, lazily frees seats whose hold has
// lapsed, creates a PENDING booking and claims each seat in request order.
// If any claim loses a race, every seat claimed so far is released and the
// booking is deleted before SeatsUnavailable is returned.
func (m *HoldManager) CreateHold(ctx context.Context, req HoldRequest) (HoldResult, error) {
	log := logger.WithContext(ctx, m.deps.Logger).With(zap.Uint64("show_id", req.ShowID), zap.Uint64("user_id", req.UserID))

	minutes, err := m.holdMinutes(req.HoldMinutes)
	if err != nil {
		metrics.HoldsTotal.WithLabelValues(metrics.ResultInvalid).Inc()
		return HoldResult{}, err
	}
	if req.ShowID == 0 {
		metrics.HoldsTotal.WithLabelValues(metrics.ResultInvalid).Inc()
		return HoldResult{}, fmt.Errorf("%w: show id is required", ErrInvalidInput)
	}

	geo, err := m.deps.Catalog.GetShowGeometry(ctx, req.ShowID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return HoldResult{}, fmt.Errorf("show %d: %w", req.ShowID, ErrNotFound)
		}
		return HoldResult{}, fmt.Errorf("load show %d: %w", req.ShowID, err)
	}

	positions, err := ParseSeatLabels(req.Seats, geo.Rows, geo.Cols)
	if err != nil {
		metrics.HoldsTotal.WithLabelValues(metrics.ResultInvalid).Inc()
		return HoldResult{}, err
	}
	labels := make([]string, len(positions))
	for i, p := range positions {
		labels[i] = p.Label()
	}

	conflicts, err := m.resolveConflicts(ctx, req.ShowID, labels, log)
	if err != nil {
		return HoldResult{}, err
	}
	if len(conflicts) > 0 {
		metrics.HoldsTotal.WithLabelValues(metrics.ResultUnavailable).Inc()
		return HoldResult{}, &SeatsUnavailableError{Labels: conflicts}
	}

	total := int64(len(labels)) * geo.Price
	if total < MinChargeableAmount {
		metrics.HoldsTotal.WithLabelValues(metrics.ResultInvalid).Inc()
		return HoldResult{}, ErrInvalidAmount
	}

	now := m.deps.Clock.Now()
	expiresAt := now.Add(time.Duration(minutes) * time.Minute)
	booking := &model.Booking{
		UserID:        req.UserID,
		ShowID:        req.ShowID,
		SeatLabels:    labels,
		Status:        model.BookingPending,
		TotalAmount:   total,
		PaymentStatus: model.PaymentNotInitiated,
		HoldExpiresAt: &expiresAt,
	}
	if err := m.deps.Bookings.Create(ctx, booking); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			metrics.HoldsTotal.WithLabelValues(metrics.ResultUnavailable).Inc()
			return HoldResult{}, &SeatsUnavailableError{Labels: labels}
		}
		return HoldResult{}, fmt.Errorf("create booking: %w", err)
	}
	log = log.With(zap.Uint64("booking_id", booking.ID))

	claimed := make([]model.BookingSeat, 0, len(positions))
	for _, p := range positions {
		seatID, ok, err := m.deps.Seats.Claim(ctx, model.SeatClaim{ShowID: req.ShowID, Position: p, Holder: booking.ID})
		if err != nil || !ok {
			m.rollback(ctx, booking, log)
			if err != nil {
				return HoldResult{}, fmt.Errorf("claim seat %s: %w", p.Label(), err)
			}
			metrics.HoldsTotal.WithLabelValues(metrics.ResultUnavailable).Inc()
			log.Info("hold lost seat race", zap.String("seat", p.Label()))
			return HoldResult{}, &SeatsUnavailableError{Labels: []string{p.Label()}}
		}
		claimed = append(claimed, model.BookingSeat{SeatID: seatID, Label: p.Label()})
	}

	if err := m.deps.Bookings.AttachSeats(ctx, booking.ID, claimed); err != nil {
		m.rollback(ctx, booking, log)
		return HoldResult{}, fmt.Errorf("attach seats: %w", err)
	}
	for _, s := range claimed {
		booking.SeatIDs = append(booking.SeatIDs, s.SeatID)
	}

	remaining := expiresAt.Sub(m.deps.Clock.Now())
	if remaining < 0 {
		remaining = 0
	}
	m.deps.Notifier.SeatsChanged(ctx, req.ShowID)
	if err := m.deps.Events.BookingHeld(ctx, *booking, remaining); err != nil {
		log.Warn("publish booking held failed", zap.Error(err))
	}
	metrics.HoldsTotal.WithLabelValues(metrics.ResultOK).Inc()
	log.Info("seats held", zap.Strings("seats", labels), zap.Time("hold_expires_at", expiresAt))

	return HoldResult{
		BookingID:     booking.ID,
		HoldMinutes:   minutes,
		HoldExpiresAt: expiresAt,
		ExpiresIn:     int64(remaining / time.Second),
		TotalAmount:   total,
	}, nil
}

func (m *HoldManager) holdMinutes(requested int) (int, error) {
	switch {
	case requested == 0:
		return m.cfg.DefaultMinutes, nil
	case requested < 0:
		return 0, fmt.Errorf("%w: holdMinutes must be positive", ErrInvalidInput)
	case requested > m.cfg.MaxMinutes:
		return 0, fmt.Errorf("%w: holdMinutes must be at most %d", ErrInvalidInput, m.cfg.MaxMinutes)
	}
	return requested, nil
}

// resolveConflicts returns the requested labels that are held or booked.
// Seats held by a booking that expired, vanished or is no longer PENDING
// are released first, conditionally on that holder.  An expired holder is
// also failed so its seat set stops counting as active.
func (m *HoldManager) resolveConflicts(ctx context.Context, showID uint64, labels []string, log *zap.Logger) ([]string, error) {
	taken, err := m.deps.Seats.FindTaken(ctx, showID, labels)
	if err != nil {
		return nil, fmt.Errorf("find taken seats: %w", err)
	}
	if len(taken) == 0 {
		return nil, nil
	}

	holders := heldByIDs(taken)
	if len(holders) > 0 {
		bookings, err := m.deps.Bookings.ListByIDs(ctx, holders)
		if err != nil {
			return nil, fmt.Errorf("load holders: %w", err)
		}
		byID := make(map[uint64]model.Booking, len(bookings))
		for _, b := range bookings {
			byID[b.ID] = b
		}
		now := m.deps.Clock.Now()
		var released int64
		for _, h := range holders {
			b, found := byID[h]
			if found && b.Status == model.BookingPending && !b.HoldExpired(now) {
				continue
			}
			n, err := m.deps.Seats.ReleaseHolder(ctx, h)
			if err != nil {
				return nil, fmt.Errorf("release lapsed holder %d: %w", h, err)
			}
			released += n
			if found && b.Status == model.BookingPending {
				m.failLapsed(ctx, b, log)
			}
		}
		if released > 0 {
			metrics.LazyReleasedSeatsTotal.Add(float64(released))
			log.Info("released lapsed holds", zap.Int64("seats", released))
			m.deps.Notifier.SeatsChanged(ctx, showID)
			if taken, err = m.deps.Seats.FindTaken(ctx, showID, labels); err != nil {
				return nil, fmt.Errorf("find taken seats: %w", err)
			}
		}
	}

	out := make([]string, 0, len(taken))
	for _, s := range taken {
		out = append(out, s.Label)
	}
	return out, nil
}

// failLapsed fails an expired PENDING booking whose seats were just
// released.  Errors are only logged; the reaper retries.
func (m *HoldManager) failLapsed(ctx context.Context, b model.Booking, log *zap.Logger) {
	ok, err := m.deps.Bookings.MarkFailed(ctx, b.ID)
	if err != nil {
		log.Warn("fail lapsed booking failed", zap.Uint64("lapsed_booking_id", b.ID), zap.Error(err))
		return
	}
	if !ok {
		return
	}
	b.Status = model.BookingFailed
	b.PaymentStatus = model.PaymentFailed
	b.HoldExpiresAt = nil
	if err := m.deps.Events.BookingExpired(ctx, b); err != nil {
		log.Warn("publish booking expired failed", zap.Uint64("lapsed_booking_id", b.ID), zap.Error(err))
	}
}

// rollback undoes a partial hold.  It runs detached from the request
// context so a cancelled client cannot leave seats claimed.
func (m *HoldManager) rollback(ctx context.Context, b *model.Booking, log *zap.Logger) {
	ctx = context.WithoutCancel(ctx)
	metrics.HoldRollbacksTotal.Inc()
	if _, err := m.deps.Seats.ReleaseHolder(ctx, b.ID); err != nil {
		// The booking stays so the reaper can fail it and free the seats.
		log.Error("rollback release failed", zap.Error(err))
		return
	}
	if err := m.deps.Bookings.Delete(ctx, b.ID); err != nil {
		log.Error("rollback delete failed", zap.Error(err))
	}
	m.deps.Notifier.SeatsChanged(ctx, b.ShowID)
}

func heldByIDs(seats []model.ShowSeat) []uint64 {
	seen := make(map[uint64]bool)
	var out []uint64
	for _, s := range seats {
		if s.Status == model.SeatHeld && s.HeldBy != nil && !seen[*s.HeldBy] {
			seen[*s.HeldBy] = true
			out = append(out, *s.HeldBy)
		}
	}
	return out
}
