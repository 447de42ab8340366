package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-booking-core/internal/model"
	"github.com/iliyamo/cinema-booking-core/internal/repository"
)

func TestSeatGrid_EmptyShowIsAvailable(t *testing.T) {
	env := newTestEnv(t)

	g, err := env.grid.GetSeatGrid(context.Background(), testShow.ShowID)
	require.NoError(t, err)
	assert.Equal(t, "Screen 1", g.ScreenName)
	require.Len(t, g.Cells, 5)
	for i, row := range g.Cells {
		require.Len(t, row, 10)
		for j, cell := range row {
			assert.Equal(t, RowLabel(i), cell.Row)
			assert.Equal(t, j+1, cell.Col)
			assert.Equal(t, model.SeatAvailable, cell.Status)
		}
	}
}

func TestSeatGrid_ReflectsHoldsAndBookings(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.hold(t, 1, "A-1")
	booked := env.hold(t, 2, "C-10")
	_, err := env.confirm.Confirm(ctx, booked.BookingID, 2)
	require.NoError(t, err)

	g, err := env.grid.GetSeatGrid(ctx, testShow.ShowID)
	require.NoError(t, err)
	assert.Equal(t, model.SeatHeld, g.Cells[0][0].Status)
	assert.Equal(t, model.SeatBooked, g.Cells[2][9].Status)
	assert.Equal(t, model.SeatAvailable, g.Cells[0][1].Status)
}

func TestSeatGrid_UnknownShow(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.grid.GetSeatGrid(context.Background(), 77)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSeatGrid_CapsRowsAtAddressableLetters(t *testing.T) {
	env := newTestEnv(t)
	env.deps.Catalog = repository.NewMemoryCatalog(model.ShowGeometry{ShowID: 1, ScreenName: "IMAX", Rows: 30, Cols: 2, Price: 100})
	env.rewire()

	g, err := env.grid.GetSeatGrid(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, g.Cells, MaxRows)
	assert.Equal(t, 30, g.Rows)
}

func TestSeatGrid_RejectsShowWithoutLayout(t *testing.T) {
	env := newTestEnv(t)
	env.deps.Catalog = repository.NewMemoryCatalog(
		model.ShowGeometry{ShowID: 1, ScreenName: "Broken", Rows: 5, Cols: -1, Price: 100},
		model.ShowGeometry{ShowID: 2, ScreenName: "Empty", Rows: 0, Cols: 4, Price: 100},
	)
	env.rewire()

	for _, id := range []uint64{1, 2} {
		assert.NotPanics(t, func() {
			_, err := env.grid.GetSeatGrid(context.Background(), id)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}
