package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/cinema-booking-core/internal/model"
)

// MemoryStore keeps seats and bookings in process memory.  It implements
// the same conditional-update contract as the MySQL repositories: each
// method is one atomic step under the store mutex, and no lock is held
// between calls.  It backs STORE_DRIVER=memory and the service tests.
type MemoryStore struct {
	mu sync.Mutex

	nextSeatID    uint64
	nextBookingID uint64

	seats     map[uint64]*model.ShowSeat
	seatIndex map[seatKey]uint64

	bookings     map[uint64]*memBooking
	activeSeatKS map[activeKey]uint64
}

type seatKey struct {
	showID uint64
	row    string
	col    int
}

type activeKey struct {
	showID uint64
	digest string
}

type memBooking struct {
	model.Booking
	seats []model.BookingSeat
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		seats:        make(map[uint64]*model.ShowSeat),
		seatIndex:    make(map[seatKey]uint64),
		bookings:     make(map[uint64]*memBooking),
		activeSeatKS: make(map[activeKey]uint64),
	}
}

// Claim implements the seat compare-and-swap; see ShowSeatRepo.Claim.
func (m *MemoryStore) Claim(_ context.Context, claim model.SeatClaim) (uint64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := seatKey{claim.ShowID, claim.Position.Row, claim.Position.Col}
	if id, ok := m.seatIndex[key]; ok {
		s := m.seats[id]
		if s.Status == model.SeatAvailable && s.HeldBy == nil {
			s.Status = model.SeatHeld
			s.HeldBy = ptr(claim.Holder)
			s.UpdatedAt = time.Now().UTC()
			return id, true, nil
		}
		held := s.Status == model.SeatHeld && s.HeldBy != nil && *s.HeldBy == claim.Holder
		return id, held, nil
	}
	m.nextSeatID++
	now := time.Now().UTC()
	s := &model.ShowSeat{
		ID:        m.nextSeatID,
		ShowID:    claim.ShowID,
		Row:       claim.Position.Row,
		Col:       claim.Position.Col,
		Label:     claim.Position.Label(),
		SeatType:  model.SeatTypeRegular,
		Status:    model.SeatHeld,
		HeldBy:    ptr(claim.Holder),
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.seats[s.ID] = s
	m.seatIndex[key] = s.ID
	return s.ID, true, nil
}

// FindTaken returns the held or booked seats of a show among labels.
func (m *MemoryStore) FindTaken(_ context.Context, showID uint64, labels []string) ([]model.ShowSeat, error) {
	want := make(map[string]bool, len(labels))
	for _, l := range labels {
		want[l] = true
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.ShowSeat
	for _, s := range m.seats {
		if s.ShowID == showID && want[s.Label] && s.Status != model.SeatAvailable {
			out = append(out, copySeat(s))
		}
	}
	sortSeats(out)
	return out, nil
}

// ReleaseHolder returns every seat held by holder to available.
func (m *MemoryStore) ReleaseHolder(_ context.Context, holder uint64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, s := range m.seats {
		if s.Status == model.SeatHeld && s.HeldBy != nil && *s.HeldBy == holder {
			s.Status = model.SeatAvailable
			s.HeldBy = nil
			s.UpdatedAt = time.Now().UTC()
			n++
		}
	}
	return n, nil
}

// ReleaseSeat returns one seat to available if holder still holds it.
func (m *MemoryStore) ReleaseSeat(_ context.Context, seatID, holder uint64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.seats[seatID]
	if !ok || s.Status != model.SeatHeld || s.HeldBy == nil || *s.HeldBy != holder {
		return false, nil
	}
	s.Status = model.SeatAvailable
	s.HeldBy = nil
	s.UpdatedAt = time.Now().UTC()
	return true, nil
}

// ListHeld returns every held seat.
func (m *MemoryStore) ListHeld(_ context.Context) ([]model.ShowSeat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.ShowSeat
	for _, s := range m.seats {
		if s.Status == model.SeatHeld && s.HeldBy != nil {
			out = append(out, copySeat(s))
		}
	}
	sortSeats(out)
	return out, nil
}

// ListByShow returns the seat records of a show.
func (m *MemoryStore) ListByShow(_ context.Context, showID uint64) ([]model.ShowSeat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.ShowSeat
	for _, s := range m.seats {
		if s.ShowID == showID {
			out = append(out, copySeat(s))
		}
	}
	sortSeats(out)
	return out, nil
}

// Create inserts b and assigns its ID.
func (m *MemoryStore) Create(_ context.Context, b *model.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ak := activeKey{b.ShowID, model.SeatSetKey(b.SeatLabels)}
	if _, taken := m.activeSeatKS[ak]; taken {
		return ErrConflict
	}
	m.nextBookingID++
	now := time.Now().UTC()
	stored := &memBooking{Booking: copyBooking(b)}
	stored.ID = m.nextBookingID
	stored.SeatIDs = nil
	stored.CreatedAt = now
	stored.UpdatedAt = now
	m.bookings[stored.ID] = stored
	m.activeSeatKS[ak] = stored.ID
	b.ID = stored.ID
	b.CreatedAt = now
	b.UpdatedAt = now
	return nil
}

// AttachSeats records the seats claimed for a booking.
func (m *MemoryStore) AttachSeats(_ context.Context, bookingID uint64, seats []model.BookingSeat) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[bookingID]
	if !ok {
		return ErrNotFound
	}
	b.seats = append(b.seats, seats...)
	return nil
}

// Delete removes a booking.
func (m *MemoryStore) Delete(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.bookings[id]; ok {
		m.clearActiveKey(b)
		delete(m.bookings, id)
	}
	return nil
}

// GetByID loads a booking with its claimed seat ids.
func (m *MemoryStore) GetByID(_ context.Context, id uint64) (*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := b.snapshot()
	return &out, nil
}

// ListByIDs returns the bookings among ids that still exist.
func (m *MemoryStore) ListByIDs(_ context.Context, ids []uint64) ([]model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Booking
	for _, id := range ids {
		if b, ok := m.bookings[id]; ok {
			out = append(out, b.snapshot())
		}
	}
	return out, nil
}

// ListExpiredPending returns up to limit PENDING bookings whose hold ended
// at or before now, oldest first.
func (m *MemoryStore) ListExpiredPending(_ context.Context, now time.Time, limit int) ([]model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Booking
	for _, b := range m.bookings {
		if b.Status == model.BookingPending && b.HoldExpired(now) {
			out = append(out, b.snapshot())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].HoldExpiresAt.Before(*out[j].HoldExpiresAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// MarkFailed fails a booking that is still PENDING.
func (m *MemoryStore) MarkFailed(_ context.Context, id uint64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok || b.Status != model.BookingPending {
		return false, nil
	}
	b.Status = model.BookingFailed
	b.PaymentStatus = model.PaymentFailed
	b.HoldExpiresAt = nil
	b.UpdatedAt = time.Now().UTC()
	m.clearActiveKey(b)
	return true, nil
}

// Confirm finalizes a PENDING booking and its seats atomically.
func (m *MemoryStore) Confirm(_ context.Context, c model.Confirmation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[c.BookingID]
	if !ok {
		return ErrNotFound
	}
	if b.Status != model.BookingPending {
		return ErrStateChanged
	}
	if b.HoldExpired(c.Now) {
		return ErrHoldLapsed
	}
	if len(c.SeatIDs) == 0 {
		return ErrSeatsNotHeld
	}
	for _, id := range c.SeatIDs {
		s, ok := m.seats[id]
		if !ok || s.Status != model.SeatHeld || s.HeldBy == nil || *s.HeldBy != c.BookingID {
			return ErrSeatsNotHeld
		}
	}
	now := time.Now().UTC()
	for _, id := range c.SeatIDs {
		s := m.seats[id]
		s.Status = model.SeatBooked
		s.BookedBy = ptr(c.BookingID)
		s.HeldBy = nil
		s.UpdatedAt = now
	}
	b.Status = model.BookingConfirmed
	b.PaymentStatus = model.PaymentPaid
	b.TotalAmount = c.TotalAmount
	b.HoldExpiresAt = nil
	b.UpdatedAt = now
	return nil
}

// PurgeExpiredPending deletes PENDING bookings whose hold ended before cutoff.
func (m *MemoryStore) PurgeExpiredPending(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, b := range m.bookings {
		if b.Status == model.BookingPending && b.HoldExpiresAt != nil && b.HoldExpiresAt.Before(cutoff) {
			m.clearActiveKey(b)
			delete(m.bookings, id)
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) clearActiveKey(b *memBooking) {
	ak := activeKey{b.ShowID, model.SeatSetKey(b.SeatLabels)}
	if m.activeSeatKS[ak] == b.ID {
		delete(m.activeSeatKS, ak)
	}
}

func (b *memBooking) snapshot() model.Booking {
	out := copyBooking(&b.Booking)
	out.SeatIDs = nil
	for _, s := range b.seats {
		out.SeatIDs = append(out.SeatIDs, s.SeatID)
	}
	return out
}

func copyBooking(b *model.Booking) model.Booking {
	out := *b
	out.SeatLabels = append([]string(nil), b.SeatLabels...)
	out.SeatIDs = append([]uint64(nil), b.SeatIDs...)
	if b.HoldExpiresAt != nil {
		t := *b.HoldExpiresAt
		out.HoldExpiresAt = &t
	}
	return out
}

func copySeat(s *model.ShowSeat) model.ShowSeat {
	out := *s
	if s.HeldBy != nil {
		out.HeldBy = ptr(*s.HeldBy)
	}
	if s.BookedBy != nil {
		out.BookedBy = ptr(*s.BookedBy)
	}
	return out
}

func sortSeats(seats []model.ShowSeat) {
	sort.Slice(seats, func(i, j int) bool {
		if seats[i].ShowID != seats[j].ShowID {
			return seats[i].ShowID < seats[j].ShowID
		}
		if seats[i].Row != seats[j].Row {
			return seats[i].Row < seats[j].Row
		}
		return seats[i].Col < seats[j].Col
	})
}

func ptr(v uint64) *uint64 { return &v }

// MemoryCatalog serves show geometry from memory.
type MemoryCatalog struct {
	mu    sync.RWMutex
	shows map[uint64]model.ShowGeometry
}

// NewMemoryCatalog returns a catalog holding shows.
func NewMemoryCatalog(shows ...model.ShowGeometry) *MemoryCatalog {
	c := &MemoryCatalog{shows: make(map[uint64]model.ShowGeometry, len(shows))}
	for _, s := range shows {
		c.shows[s.ShowID] = s
	}
	return c
}

// SetPrice changes the per-seat price of a show.
func (c *MemoryCatalog) SetPrice(showID uint64, price int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.shows[showID]; ok {
		s.Price = price
		c.shows[showID] = s
	}
}

// GetShowGeometry returns the geometry of a show or ErrNotFound.
func (c *MemoryCatalog) GetShowGeometry(_ context.Context, showID uint64) (model.ShowGeometry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.shows[showID]
	if !ok {
		return model.ShowGeometry{}, ErrNotFound
	}
	return s, nil
}

// GetShowPrice returns the per-seat price of a show or ErrNotFound.
func (c *MemoryCatalog) GetShowPrice(ctx context.Context, showID uint64) (int64, error) {
	g, err := c.GetShowGeometry(ctx, showID)
	if err != nil {
		return 0, err
	}
	return g.Price, nil
}
