package repository // repository holds data access logic for domain entities

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/cinema-booking-core/internal/model"
)

// ShowRepo reads show geometry and price from the shows and halls tables.
// Shows and halls are maintained by the catalog service; this repository
// never writes them.
type ShowRepo struct {
	db *sql.DB // db is the underlying database connection
}

// NewShowRepo constructs a ShowRepo with the given DB handle.
func NewShowRepo(db *sql.DB) *ShowRepo {
	return &ShowRepo{db: db}
}

// GetShowGeometry returns the hall grid and seat price of a show.  It
// returns ErrNotFound when the show does not exist or its hall has no
// layout.
func (r *ShowRepo) GetShowGeometry(ctx context.Context, showID uint64) (model.ShowGeometry, error) {
	const q = `SELECT s.id, h.name, h.seat_rows, h.seat_cols, s.price
	           FROM shows s
	           JOIN halls h ON h.id = s.hall_id
	           WHERE s.id = ?`
	var (
		g          model.ShowGeometry
		rows, cols sql.NullInt32
	)
	err := r.db.QueryRowContext(ctx, q, showID).Scan(&g.ShowID, &g.ScreenName, &rows, &cols, &g.Price)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.ShowGeometry{}, ErrNotFound
		}
		return model.ShowGeometry{}, err
	}
	if !rows.Valid || !cols.Valid || rows.Int32 < 1 || cols.Int32 < 1 {
		return model.ShowGeometry{}, ErrNotFound
	}
	g.Rows = int(rows.Int32)
	g.Cols = int(cols.Int32)
	return g, nil
}

// GetShowPrice returns the current per-seat price of a show.
func (r *ShowRepo) GetShowPrice(ctx context.Context, showID uint64) (int64, error) {
	var price int64
	err := r.db.QueryRowContext(ctx, `SELECT price FROM shows WHERE id = ?`, showID).Scan(&price)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return price, nil
}
