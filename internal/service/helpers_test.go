package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-booking-core/internal/model"
	"github.com/iliyamo/cinema-booking-core/internal/repository"
)

var t0 = time.Date(2025, 3, 1, 18, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordedEvents struct {
	mu        sync.Mutex
	held      []uint64
	heldFor   []time.Duration
	confirmed []uint64
	expired   []uint64
}

func (r *recordedEvents) BookingHeld(_ context.Context, b model.Booking, remaining time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.held = append(r.held, b.ID)
	r.heldFor = append(r.heldFor, remaining)
	return nil
}

func (r *recordedEvents) BookingConfirmed(_ context.Context, b model.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.confirmed = append(r.confirmed, b.ID)
	return nil
}

func (r *recordedEvents) BookingExpired(_ context.Context, b model.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.expired = append(r.expired, b.ID)
	return nil
}

func (r *recordedEvents) Expired() []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]uint64(nil), r.expired...)
}

type countingNotifier struct {
	mu    sync.Mutex
	shows map[uint64]int
}

func (n *countingNotifier) SeatsChanged(_ context.Context, showID uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.shows == nil {
		n.shows = make(map[uint64]int)
	}
	n.shows[showID]++
}

func (n *countingNotifier) Count(showID uint64) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.shows[showID]
}

// testShow is a 5 x 10 screen at 200 per seat.
var testShow = model.ShowGeometry{ShowID: 1, ScreenName: "Screen 1", Rows: 5, Cols: 10, Price: 200}

type testEnv struct {
	store    *repository.MemoryStore
	catalog  *repository.MemoryCatalog
	clock    *fakeClock
	events   *recordedEvents
	notifier *countingNotifier
	deps     Deps

	holds   *HoldManager
	confirm *Confirmer
	reader  *BookingReader
	reaper  *Reaper
	grid    *SeatGrid
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := repository.NewMemoryStore()
	env := &testEnv{
		store:    store,
		catalog:  repository.NewMemoryCatalog(testShow),
		clock:    &fakeClock{now: t0},
		events:   &recordedEvents{},
		notifier: &countingNotifier{},
	}
	env.deps = Deps{
		Seats:    store,
		Bookings: store,
		Catalog:  env.catalog,
		Clock:    env.clock,
		Events:   env.events,
		Notifier: env.notifier,
	}
	env.rewire()
	return env
}

// rewire rebuilds the services after env.deps changed.
func (e *testEnv) rewire() {
	e.holds = NewHoldManager(e.deps, HoldConfig{DefaultMinutes: 10, MaxMinutes: 60})
	e.confirm = NewConfirmer(e.deps)
	e.reader = NewBookingReader(e.deps)
	e.reaper = NewReaper(e.deps, ReaperConfig{Interval: time.Minute})
	e.grid = NewSeatGrid(e.deps)
}

func (e *testEnv) hold(t *testing.T, user uint64, seats ...string) HoldResult {
	t.Helper()
	res, err := e.holds.CreateHold(context.Background(), HoldRequest{ShowID: testShow.ShowID, UserID: user, Seats: seats})
	require.NoError(t, err)
	return res
}

func (e *testEnv) booking(t *testing.T, id uint64) *model.Booking {
	t.Helper()
	b, err := e.store.GetByID(context.Background(), id)
	require.NoError(t, err)
	return b
}

// seatStatus returns the status of a seat of testShow, "available" when
// no record exists.
func (e *testEnv) seatStatus(t *testing.T, label string) (string, *uint64) {
	t.Helper()
	seats, err := e.store.ListByShow(context.Background(), testShow.ShowID)
	require.NoError(t, err)
	for _, s := range seats {
		if s.Label == label {
			return s.Status, s.HeldBy
		}
	}
	return model.SeatAvailable, nil
}

func (e *testEnv) heldCount(t *testing.T) int {
	t.Helper()
	held, err := e.store.ListHeld(context.Background())
	require.NoError(t, err)
	return len(held)
}
