package repository

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-booking-core/internal/model"
)

var (
	claimUpdateRe = regexp.QuoteMeta(`UPDATE show_seats SET status = 'held', held_by = ?`)
	claimInsertRe = regexp.QuoteMeta(`INSERT INTO show_seats (show_id, row_label, col_no, seat_label, seat_type, status, held_by)`)
	holderRe      = regexp.QuoteMeta(`SELECT id, status, held_by FROM show_seats WHERE show_id = ? AND row_label = ? AND col_no = ?`)
)

func newMockSeatRepo(t *testing.T) (*ShowSeatRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewShowSeatRepo(db), mock
}

var claimB5 = model.SeatClaim{ShowID: 3, Position: model.SeatPosition{Row: "B", Col: 5}, Holder: 10}

func TestShowSeatRepo_ClaimExistingAvailableSeat(t *testing.T) {
	repo, mock := newMockSeatRepo(t)
	mock.ExpectExec(claimUpdateRe).WithArgs(uint64(10), uint64(3), "B", 5).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(holderRe).WithArgs(uint64(3), "B", 5).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status", "held_by"}).AddRow(41, "held", 10))

	id, ok, err := repo.Claim(context.Background(), claimB5)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(41), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShowSeatRepo_ClaimCreatesMissingSeat(t *testing.T) {
	repo, mock := newMockSeatRepo(t)
	mock.ExpectExec(claimUpdateRe).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(claimInsertRe).WithArgs(uint64(3), "B", 5, "B-5", uint64(10)).WillReturnResult(sqlmock.NewResult(77, 1))

	id, ok, err := repo.Claim(context.Background(), claimB5)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(77), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShowSeatRepo_ClaimLosesToOtherHolder(t *testing.T) {
	repo, mock := newMockSeatRepo(t)
	mock.ExpectExec(claimUpdateRe).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(claimInsertRe).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(claimUpdateRe).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(holderRe).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status", "held_by"}).AddRow(41, "held", 99))

	id, ok, err := repo.Claim(context.Background(), claimB5)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, uint64(41), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShowSeatRepo_ClaimWinsRowCreatedAvailable(t *testing.T) {
	repo, mock := newMockSeatRepo(t)
	mock.ExpectExec(claimUpdateRe).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(claimInsertRe).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(claimUpdateRe).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(holderRe).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status", "held_by"}).AddRow(41, "held", 10))

	_, ok, err := repo.Claim(context.Background(), claimB5)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShowSeatRepo_ReleaseIsConditional(t *testing.T) {
	repo, mock := newMockSeatRepo(t)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE show_seats SET status = 'available', held_by = NULL WHERE held_by = ? AND status = 'held'`)).
		WithArgs(uint64(10)).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta(`WHERE id = ? AND held_by = ? AND status = 'held'`)).
		WithArgs(uint64(41), uint64(10)).WillReturnResult(sqlmock.NewResult(0, 0))

	n, err := repo.ReleaseHolder(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	ok, err := repo.ReleaseSeat(context.Background(), 41, 10)
	require.NoError(t, err)
	assert.False(t, ok, "seat moved on; nothing released")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "", placeholders(0))
	assert.Equal(t, "?", placeholders(1))
	assert.Equal(t, "?, ?, ?", placeholders(3))
}
