package repository

import (
	"context"
	"database/sql/driver"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-booking-core/internal/model"
)

const geometryRe = `SELECT s\.id, h\.name, h\.seat_rows, h\.seat_cols, s\.price`

func TestShowRepo_GetShowGeometry(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewShowRepo(db)
	cols := []string{"id", "name", "seat_rows", "seat_cols", "price"}

	mock.ExpectQuery(geometryRe).WithArgs(uint64(1)).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(1, "Screen 1", 5, 10, 200))
	g, err := repo.GetShowGeometry(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, model.ShowGeometry{ShowID: 1, ScreenName: "Screen 1", Rows: 5, Cols: 10, Price: 200}, g)

	layouts := map[string][]driver.Value{
		"null rows":     {2, "Hall", nil, 10, 200},
		"negative cols": {2, "Hall", 5, -1, 200},
		"zero rows":     {2, "Hall", 0, 10, 200},
	}
	for name, row := range layouts {
		t.Run(name, func(t *testing.T) {
			mock.ExpectQuery(geometryRe).WithArgs(uint64(2)).
				WillReturnRows(sqlmock.NewRows(cols).AddRow(row...))
			_, err := repo.GetShowGeometry(context.Background(), 2)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}
