package database

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking-core/internal/model"
)

// RunMigrations creates the booking schema if it is missing.  Every
// statement is idempotent.
func RunMigrations(ctx context.Context, db *sql.DB, log *zap.Logger) error {
	log.Info("running database migrations")

	migrations := []string{
		createHallsTable,
		createShowsTable,
		createShowSeatsTable,
		createBookingsTable,
		createBookingSeatsTable,
	}
	for i, m := range migrations {
		log.Debug("running migration", zap.Int("step", i+1))
		if _, err := db.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	log.Info("database migrations complete", zap.Int("steps", len(migrations)))
	return nil
}

// SeedShows inserts a hall and a show per entry unless the show already
// exists.  Halls get the show id so reseeding is stable.
func SeedShows(ctx context.Context, db *sql.DB, shows []model.ShowGeometry) error {
	const hallQ = `INSERT IGNORE INTO halls (id, name, seat_rows, seat_cols) VALUES (?, ?, ?, ?)`
	const showQ = `INSERT IGNORE INTO shows (id, hall_id, title, starts_at, price) VALUES (?, ?, ?, UTC_TIMESTAMP(), ?)`
	for _, s := range shows {
		if _, err := db.ExecContext(ctx, hallQ, s.ShowID, s.ScreenName, s.Rows, s.Cols); err != nil {
			return fmt.Errorf("seed hall for show %d: %w", s.ShowID, err)
		}
		title := fmt.Sprintf("Show %d", s.ShowID)
		if _, err := db.ExecContext(ctx, showQ, s.ShowID, s.ShowID, title, s.Price); err != nil {
			return fmt.Errorf("seed show %d: %w", s.ShowID, err)
		}
	}
	return nil
}

const createHallsTable = `
CREATE TABLE IF NOT EXISTS halls (
    id         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
    name       VARCHAR(100)    NOT NULL,
    seat_rows  INT             NULL,
    seat_cols  INT             NULL,
    created_at DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

const createShowsTable = `
CREATE TABLE IF NOT EXISTS shows (
    id         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
    hall_id    BIGINT UNSIGNED NOT NULL,
    title      VARCHAR(200)    NOT NULL,
    starts_at  DATETIME        NOT NULL,
    price      BIGINT          NOT NULL,
    created_at DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
    CONSTRAINT fk_shows_hall FOREIGN KEY (hall_id) REFERENCES halls(id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

const createShowSeatsTable = `
CREATE TABLE IF NOT EXISTS show_seats (
    id         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
    show_id    BIGINT UNSIGNED NOT NULL,
    row_label  VARCHAR(2)      NOT NULL,
    col_no     INT             NOT NULL,
    seat_label VARCHAR(8)      NOT NULL,
    seat_type  ENUM('regular', 'premium') NOT NULL DEFAULT 'regular',
    status     ENUM('available', 'held', 'booked') NOT NULL DEFAULT 'available',
    held_by    BIGINT UNSIGNED NULL,
    booked_by  BIGINT UNSIGNED NULL,
    created_at DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
    UNIQUE KEY uq_show_seat (show_id, row_label, col_no),
    KEY idx_show_seats_status (show_id, status),
    KEY idx_show_seats_held_by (held_by)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

const createBookingsTable = `
CREATE TABLE IF NOT EXISTS bookings (
    id              BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
    user_id         BIGINT UNSIGNED NOT NULL,
    show_id         BIGINT UNSIGNED NOT NULL,
    seat_labels     TEXT            NOT NULL,
    status          ENUM('PENDING', 'CONFIRMED', 'CANCELLED', 'FAILED') NOT NULL DEFAULT 'PENDING',
    total_amount    BIGINT          NOT NULL,
    payment_status  ENUM('NOT_INITIATED', 'PAID', 'FAILED', 'REFUNDED') NOT NULL DEFAULT 'NOT_INITIATED',
    hold_expires_at DATETIME(3)     NULL,
    active_seat_key CHAR(64)        NULL,
    created_at      DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at      DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
    UNIQUE KEY uq_bookings_active_seats (show_id, active_seat_key),
    KEY idx_bookings_hold_expires (status, hold_expires_at),
    KEY idx_bookings_user (user_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

const createBookingSeatsTable = `
CREATE TABLE IF NOT EXISTS booking_seats (
    booking_id BIGINT UNSIGNED NOT NULL,
    seat_id    BIGINT UNSIGNED NOT NULL,
    seat_label VARCHAR(8)      NOT NULL,
    PRIMARY KEY (booking_id, seat_id),
    CONSTRAINT fk_booking_seats_booking FOREIGN KEY (booking_id) REFERENCES bookings(id) ON DELETE CASCADE
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`
