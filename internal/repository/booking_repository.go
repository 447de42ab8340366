package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/cinema-booking-core/internal/model"
)

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

// BookingRepo is the MySQL booking store.  Active bookings carry a digest
// of their seat set in active_seat_key, which is unique per show and is
// cleared once a booking fails or is cancelled.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo constructs a BookingRepo with the given DB handle.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = `id, user_id, show_id, seat_labels, status, total_amount, payment_status, hold_expires_at, created_at, updated_at`

// Create inserts b and assigns its ID.  It returns ErrConflict when another
// active booking of the same show already covers exactly the same seats.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
	const q = `INSERT INTO bookings (user_id, show_id, seat_labels, status, total_amount, payment_status, hold_expires_at, active_seat_key)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, b.UserID, b.ShowID, strings.Join(b.SeatLabels, ","), b.Status,
		b.TotalAmount, b.PaymentStatus, b.HoldExpiresAt, model.SeatSetKey(b.SeatLabels))
	if err != nil {
		var myErr *mysql.MySQLError
		if errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return nil
}

// AttachSeats records the seats claimed for a booking.
func (r *BookingRepo) AttachSeats(ctx context.Context, bookingID uint64, seats []model.BookingSeat) error {
	if len(seats) == 0 {
		return nil
	}
	query := `INSERT INTO booking_seats (booking_id, seat_id, seat_label) VALUES `
	args := make([]interface{}, 0, len(seats)*3)
	for i, s := range seats {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?)"
		args = append(args, bookingID, s.SeatID, s.Label)
	}
	_, err := r.db.ExecContext(ctx, query, args...)
	return err
}

// Delete removes a booking and, through the foreign key, its seat links.
func (r *BookingRepo) Delete(ctx context.Context, id uint64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id)
	return err
}

// GetByID loads a booking with its claimed seat ids.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	b, err := scanBooking(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, `SELECT seat_id FROM booking_seats WHERE booking_id = ? ORDER BY seat_id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var seatID uint64
		if err := rows.Scan(&seatID); err != nil {
			return nil, err
		}
		b.SeatIDs = append(b.SeatIDs, seatID)
	}
	return b, rows.Err()
}

// ListByIDs returns the bookings among ids that still exist.  Seat ids are
// not loaded.
func (r *BookingRepo) ListByIDs(ctx context.Context, ids []uint64) ([]model.Booking, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q := `SELECT ` + bookingColumns + ` FROM bookings WHERE id IN (` + placeholders(len(ids)) + `)`
	args := make([]interface{}, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
	}
	return r.list(ctx, q, args...)
}

// ListExpiredPending returns up to limit PENDING bookings whose hold ended
// at or before now, oldest first.  The hold_expires_at index serves it.
func (r *BookingRepo) ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]model.Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM bookings
	      WHERE status = 'PENDING' AND hold_expires_at IS NOT NULL AND hold_expires_at <= ?
	      ORDER BY hold_expires_at ASC LIMIT ?`
	return r.list(ctx, q, now, limit)
}

// MarkFailed fails a booking that is still PENDING.  It reports whether the
// row changed, so repeated calls are harmless.
func (r *BookingRepo) MarkFailed(ctx context.Context, id uint64) (bool, error) {
	const q = `UPDATE bookings SET status = 'FAILED', payment_status = 'FAILED', hold_expires_at = NULL, active_seat_key = NULL
	           WHERE id = ? AND status = 'PENDING'`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// Confirm finalizes a PENDING booking and all of its seats in one
// transaction.  The booking row is locked first; the seat update only
// touches seats still held by this booking, and if any seat is missing the
// transaction is rolled back with ErrSeatsNotHeld.
func (r *BookingRepo) Confirm(ctx context.Context, c model.Confirmation) error {
	if len(c.SeatIDs) == 0 {
		return ErrSeatsNotHeld
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var (
		status    string
		expiresAt sql.NullTime
	)
	err = tx.QueryRowContext(ctx, `SELECT status, hold_expires_at FROM bookings WHERE id = ? FOR UPDATE`, c.BookingID).
		Scan(&status, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if status != model.BookingPending {
		return ErrStateChanged
	}
	if expiresAt.Valid && !c.Now.Before(expiresAt.Time) {
		return ErrHoldLapsed
	}

	n, err := finalizeSeatsTx(ctx, tx, c.BookingID, c.SeatIDs)
	if err != nil {
		return err
	}
	if n != int64(len(c.SeatIDs)) {
		return ErrSeatsNotHeld
	}

	const q = `UPDATE bookings SET status = 'CONFIRMED', payment_status = 'PAID', total_amount = ?, hold_expires_at = NULL
	           WHERE id = ? AND status = 'PENDING'`
	if _, err := tx.ExecContext(ctx, q, c.TotalAmount, c.BookingID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// PurgeExpiredPending deletes PENDING bookings whose hold ended before
// cutoff.  Seats they still hold are left to the orphan sweep.
func (r *BookingRepo) PurgeExpiredPending(ctx context.Context, cutoff time.Time) (int64, error) {
	const q = `DELETE FROM bookings WHERE status = 'PENDING' AND hold_expires_at IS NOT NULL AND hold_expires_at < ?`
	res, err := r.db.ExecContext(ctx, q, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *BookingRepo) list(ctx context.Context, q string, args ...interface{}) ([]model.Booking, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBooking(s rowScanner) (*model.Booking, error) {
	var (
		b         model.Booking
		labels    string
		expiresAt sql.NullTime
	)
	if err := s.Scan(&b.ID, &b.UserID, &b.ShowID, &labels, &b.Status, &b.TotalAmount, &b.PaymentStatus,
		&expiresAt, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	if labels != "" {
		b.SeatLabels = strings.Split(labels, ",")
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		b.HoldExpiresAt = &t
	}
	return &b, nil
}
