package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking-core/internal/metrics"
	"github.com/iliyamo/cinema-booking-core/internal/model"
	"github.com/iliyamo/cinema-booking-core/internal/repository"
)

// ReaperConfig controls the background sweep.
type ReaperConfig struct {
	Interval     time.Duration // time between passes, 60s when zero
	InitialDelay time.Duration // wait before the first pass
	PurgeAfter   time.Duration // delete PENDING bookings expired longer than this; 0 disables
	BatchSize    int           // expired bookings handled per pass, 500 when zero
}

// SweepReport summarizes one reaper pass.
type SweepReport struct {
	BookingsFailed  int
	SeatsReleased   int64
	OrphansReleased int
	Purged          int64
}

// Reaper releases seats whose hold lapsed or whose holder disappeared.
// Every write it makes is conditional, so any number of replicas may run
// it at the same time and a pass can be repeated without effect.
type Reaper struct {
	deps Deps
	cfg  ReaperConfig
}

// NewReaper wires a Reaper.
func NewReaper(deps Deps, cfg ReaperConfig) *Reaper {
	if cfg.Interval <= 0 {
		cfg.Interval = 60 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	return &Reaper{deps: deps.withDefaults(), cfg: cfg}
}

// Run waits InitialDelay, then runs a pass every Interval until ctx is
// cancelled.  Pass failures are logged and retried on the next tick.
func (r *Reaper) Run(ctx context.Context) error {
	log := r.deps.Logger
	log.Info("reaper starting", zap.Duration("interval", r.cfg.Interval), zap.Duration("initial_delay", r.cfg.InitialDelay))

	if r.cfg.InitialDelay > 0 {
		timer := time.NewTimer(r.cfg.InitialDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Info("reaper stopped")
			return nil
		case <-timer.C:
		}
	}

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()
	for {
		r.RunOnce(ctx)
		select {
		case <-ctx.Done():
			log.Info("reaper stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// RunOnce runs the expired-hold sweep, the purge and the orphan sweep.
func (r *Reaper) RunOnce(ctx context.Context) SweepReport {
	start := time.Now()
	defer func() { metrics.ReaperSweepDuration.Observe(time.Since(start).Seconds()) }()

	var rep SweepReport
	var err error
	log := r.deps.Logger

	rep.BookingsFailed, rep.SeatsReleased, err = r.SweepExpired(ctx)
	if err != nil {
		log.Warn("expired-hold sweep incomplete", zap.Error(err))
	}
	if r.cfg.PurgeAfter > 0 {
		cutoff := r.deps.Clock.Now().Add(-r.cfg.PurgeAfter)
		if rep.Purged, err = r.deps.Bookings.PurgeExpiredPending(ctx, cutoff); err != nil {
			log.Warn("purge of stale bookings failed", zap.Error(err))
		}
	}
	rep.OrphansReleased, err = r.SweepOrphans(ctx)
	if err != nil {
		log.Warn("orphan sweep incomplete", zap.Error(err))
	}

	if rep != (SweepReport{}) {
		log.Info("reaper pass",
			zap.Int("bookings_failed", rep.BookingsFailed),
			zap.Int64("seats_released", rep.SeatsReleased),
			zap.Int("orphans_released", rep.OrphansReleased),
			zap.Int64("purged", rep.Purged))
	}
	return rep
}

// SweepExpired fails every PENDING booking whose hold ended and releases
// the seats it still holds.  A booking whose release fails stays PENDING
// and is picked up again next pass.
func (r *Reaper) SweepExpired(ctx context.Context) (failed int, released int64, err error) {
	now := r.deps.Clock.Now()
	due, err := r.deps.Bookings.ListExpiredPending(ctx, now, r.cfg.BatchSize)
	if err != nil {
		return 0, 0, fmt.Errorf("list expired bookings: %w", err)
	}
	var errs []error
	for i := range due {
		n, ok, err := r.expire(ctx, &due[i])
		released += n
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			failed++
		}
	}
	return failed, released, errors.Join(errs...)
}

// ExpireBooking expires one booking if its hold has lapsed.  It is the
// delayed-message counterpart of SweepExpired and reports whether the
// booking was failed by this call.
func (r *Reaper) ExpireBooking(ctx context.Context, bookingID uint64) (bool, error) {
	b, err := r.deps.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("load booking %d: %w", bookingID, err)
	}
	if b.Status != model.BookingPending || !b.HoldExpired(r.deps.Clock.Now()) {
		return false, nil
	}
	_, ok, err := r.expire(ctx, b)
	return ok, err
}

func (r *Reaper) expire(ctx context.Context, b *model.Booking) (int64, bool, error) {
	n, err := r.deps.Seats.ReleaseHolder(ctx, b.ID)
	if err != nil {
		return 0, false, fmt.Errorf("release seats of booking %d: %w", b.ID, err)
	}
	metrics.ReaperReleasedSeatsTotal.WithLabelValues("expired").Add(float64(n))
	ok, err := r.deps.Bookings.MarkFailed(ctx, b.ID)
	if err != nil {
		return n, false, fmt.Errorf("fail booking %d: %w", b.ID, err)
	}
	if n > 0 || ok {
		r.deps.Notifier.SeatsChanged(ctx, b.ShowID)
	}
	if ok {
		metrics.ReaperFailedBookingsTotal.Inc()
		b.Status = model.BookingFailed
		b.PaymentStatus = model.PaymentFailed
		b.HoldExpiresAt = nil
		if err := r.deps.Events.BookingExpired(ctx, *b); err != nil {
			r.deps.Logger.Warn("publish booking expired failed", zap.Uint64("booking_id", b.ID), zap.Error(err))
		}
	}
	return n, ok, nil
}

// SweepOrphans releases held seats whose holder booking is missing or no
// longer PENDING.  Each release is conditional on the holder observed in
// the scan.
func (r *Reaper) SweepOrphans(ctx context.Context) (int, error) {
	held, err := r.deps.Seats.ListHeld(ctx)
	if err != nil {
		return 0, fmt.Errorf("list held seats: %w", err)
	}
	if len(held) == 0 {
		return 0, nil
	}
	bookings, err := r.deps.Bookings.ListByIDs(ctx, heldByIDs(held))
	if err != nil {
		return 0, fmt.Errorf("load holders: %w", err)
	}
	pending := make(map[uint64]bool, len(bookings))
	for _, b := range bookings {
		if b.Status == model.BookingPending {
			pending[b.ID] = true
		}
	}

	var (
		released int
		errs     []error
		shows    = make(map[uint64]bool)
	)
	for _, s := range held {
		if pending[*s.HeldBy] {
			continue
		}
		ok, err := r.deps.Seats.ReleaseSeat(ctx, s.ID, *s.HeldBy)
		if err != nil {
			errs = append(errs, fmt.Errorf("release orphan seat %d: %w", s.ID, err))
			continue
		}
		if ok {
			released++
			shows[s.ShowID] = true
		}
	}
	metrics.ReaperReleasedSeatsTotal.WithLabelValues("orphan").Add(float64(released))
	for showID := range shows {
		r.deps.Notifier.SeatsChanged(ctx, showID)
	}
	return released, errors.Join(errs...)
}
