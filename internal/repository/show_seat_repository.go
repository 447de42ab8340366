package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/cinema-booking-core/internal/model"
)

// ShowSeatRepo is the MySQL seat store.  Every write is a conditional
// UPDATE keyed on the current status and holder, so concurrent writers can
// never overwrite each other; the loser simply sees zero affected rows.
type ShowSeatRepo struct {
	db *sql.DB
}

// NewShowSeatRepo constructs a ShowSeatRepo with the given DB handle.
func NewShowSeatRepo(db *sql.DB) *ShowSeatRepo {
	return &ShowSeatRepo{db: db}
}

const showSeatColumns = `id, show_id, row_label, col_no, seat_label, seat_type, status, held_by, booked_by, created_at, updated_at`

const (
	// claimAvailableSQL is the compare-and-swap: available and unowned -> held by ?.
	claimAvailableSQL = `UPDATE show_seats SET status = 'held', held_by = ?
	                     WHERE show_id = ? AND row_label = ? AND col_no = ? AND status = 'available' AND held_by IS NULL`
	// insertHeldSQL creates the record already held.  On a duplicate key the
	// no-op update leaves the existing row untouched and reports 0 rows.
	insertHeldSQL = `INSERT INTO show_seats (show_id, row_label, col_no, seat_label, seat_type, status, held_by)
	                 VALUES (?, ?, ?, ?, 'regular', 'held', ?)
	                 ON DUPLICATE KEY UPDATE id = id`
	selectHolderSQL = `SELECT id, status, held_by FROM show_seats WHERE show_id = ? AND row_label = ? AND col_no = ?`
)

// Claim marks one seat as held by claim.Holder.  It first tries the
// conditional update on an existing record, then creates the record if it
// is absent.  When a concurrent creator won the insert, the conditional
// update is retried once and the stored holder is read back.  ok is true
// only when the seat ends up held by claim.Holder.
func (r *ShowSeatRepo) Claim(ctx context.Context, claim model.SeatClaim) (uint64, bool, error) {
	pos := claim.Position
	res, err := r.db.ExecContext(ctx, claimAvailableSQL, claim.Holder, claim.ShowID, pos.Row, pos.Col)
	if err != nil {
		return 0, false, err
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return r.verifyHolder(ctx, claim)
	}

	res, err = r.db.ExecContext(ctx, insertHeldSQL, claim.ShowID, pos.Row, pos.Col, pos.Label(), claim.Holder)
	if err != nil {
		return 0, false, err
	}
	if n, _ := res.RowsAffected(); n == 1 {
		id, err := res.LastInsertId()
		if err != nil {
			return 0, false, err
		}
		return uint64(id), true, nil
	}

	// The row exists: either someone else holds it or it was created
	// available between our two statements.
	if _, err := r.db.ExecContext(ctx, claimAvailableSQL, claim.Holder, claim.ShowID, pos.Row, pos.Col); err != nil {
		return 0, false, err
	}
	return r.verifyHolder(ctx, claim)
}

func (r *ShowSeatRepo) verifyHolder(ctx context.Context, claim model.SeatClaim) (uint64, bool, error) {
	var (
		id     uint64
		status string
		heldBy sql.NullInt64
	)
	pos := claim.Position
	err := r.db.QueryRowContext(ctx, selectHolderSQL, claim.ShowID, pos.Row, pos.Col).Scan(&id, &status, &heldBy)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	ok := status == model.SeatHeld && heldBy.Valid && uint64(heldBy.Int64) == claim.Holder
	return id, ok, nil
}

// FindTaken returns the seats of a show among labels that are held or booked.
func (r *ShowSeatRepo) FindTaken(ctx context.Context, showID uint64, labels []string) ([]model.ShowSeat, error) {
	if len(labels) == 0 {
		return nil, nil
	}
	q := `SELECT ` + showSeatColumns + ` FROM show_seats
	      WHERE show_id = ? AND seat_label IN (` + placeholders(len(labels)) + `) AND status IN ('held', 'booked')
	      ORDER BY row_label, col_no`
	args := make([]interface{}, 0, len(labels)+1)
	args = append(args, showID)
	for _, l := range labels {
		args = append(args, l)
	}
	return r.query(ctx, q, args...)
}

// ReleaseHolder returns every seat still held by holder to available.
func (r *ShowSeatRepo) ReleaseHolder(ctx context.Context, holder uint64) (int64, error) {
	const q = `UPDATE show_seats SET status = 'available', held_by = NULL WHERE held_by = ? AND status = 'held'`
	res, err := r.db.ExecContext(ctx, q, holder)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ReleaseSeat returns one seat to available if it is still held by holder.
func (r *ShowSeatRepo) ReleaseSeat(ctx context.Context, seatID, holder uint64) (bool, error) {
	const q = `UPDATE show_seats SET status = 'available', held_by = NULL WHERE id = ? AND held_by = ? AND status = 'held'`
	res, err := r.db.ExecContext(ctx, q, seatID, holder)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// ListHeld returns every held seat across all shows.
func (r *ShowSeatRepo) ListHeld(ctx context.Context) ([]model.ShowSeat, error) {
	q := `SELECT ` + showSeatColumns + ` FROM show_seats WHERE status = 'held' AND held_by IS NOT NULL`
	return r.query(ctx, q)
}

// ListByShow returns all seat records of a show.  Seats never touched have
// no record.
func (r *ShowSeatRepo) ListByShow(ctx context.Context, showID uint64) ([]model.ShowSeat, error) {
	q := `SELECT ` + showSeatColumns + ` FROM show_seats WHERE show_id = ? ORDER BY row_label, col_no`
	return r.query(ctx, q, showID)
}

// finalizeSeatsTx moves seats held by bookingID to booked inside tx.  It
// returns the number of rows that changed.
func finalizeSeatsTx(ctx context.Context, tx *sql.Tx, bookingID uint64, seatIDs []uint64) (int64, error) {
	q := `UPDATE show_seats SET status = 'booked', booked_by = ?, held_by = NULL
	      WHERE id IN (` + placeholders(len(seatIDs)) + `) AND status = 'held' AND held_by = ?`
	args := make([]interface{}, 0, len(seatIDs)+2)
	args = append(args, bookingID)
	for _, id := range seatIDs {
		args = append(args, id)
	}
	args = append(args, bookingID)
	res, err := tx.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *ShowSeatRepo) query(ctx context.Context, q string, args ...interface{}) ([]model.ShowSeat, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.ShowSeat
	for rows.Next() {
		var (
			s                model.ShowSeat
			heldBy, bookedBy sql.NullInt64
		)
		if err := rows.Scan(&s.ID, &s.ShowID, &s.Row, &s.Col, &s.Label, &s.SeatType, &s.Status,
			&heldBy, &bookedBy, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		s.HeldBy = nullableID(heldBy)
		s.BookedBy = nullableID(bookedBy)
		out = append(out, s)
	}
	return out, rows.Err()
}

// placeholders returns "?, ?, ?" for n parameters.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func nullableID(v sql.NullInt64) *uint64 {
	if !v.Valid {
		return nil
	}
	id := uint64(v.Int64)
	return &id
}
