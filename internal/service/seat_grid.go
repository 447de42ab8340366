package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/iliyamo/cinema-booking-core/internal/model"
	"github.com/iliyamo/cinema-booking-core/internal/repository"
)

// GridCell is one seat in the availability grid.
type GridCell struct {
	Row    string `json:"row"`
	Col    int    `json:"col"`
	Status string `json:"status"`
}

// Grid is the seat availability of a show, one slice per row.
type Grid struct {
	ShowID     uint64
	ScreenName string
	Rows       int
	Cols       int
	Cells      [][]GridCell
}

// SeatGrid projects seat store state onto the hall layout.
type SeatGrid struct {
	deps Deps
}

// NewSeatGrid wires a SeatGrid.
func NewSeatGrid(deps Deps) *SeatGrid {
	return &SeatGrid{deps: deps.withDefaults()}
}

// GetSeatGrid returns every seat of the show.  Seats without a record are
// available.
func (g *SeatGrid) GetSeatGrid(ctx context.Context, showID uint64) (Grid, error) {
	geo, err := g.deps.Catalog.GetShowGeometry(ctx, showID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Grid{}, fmt.Errorf("show %d: %w", showID, ErrNotFound)
		}
		return Grid{}, fmt.Errorf("load show %d: %w", showID, err)
	}
	if geo.Rows < 1 || geo.Cols < 1 {
		return Grid{}, fmt.Errorf("show %d has no seat layout: %w", showID, ErrNotFound)
	}
	seats, err := g.deps.Seats.ListByShow(ctx, showID)
	if err != nil {
		return Grid{}, fmt.Errorf("list seats: %w", err)
	}
	status := make(map[model.SeatPosition]string, len(seats))
	for _, s := range seats {
		status[model.SeatPosition{Row: s.Row, Col: s.Col}] = s.Status
	}

	rows := min(geo.Rows, MaxRows)
	cells := make([][]GridCell, 0, rows)
	for r := 0; r < rows; r++ {
		rowLabel := RowLabel(r)
		row := make([]GridCell, 0, geo.Cols)
		for c := 1; c <= geo.Cols; c++ {
			st, ok := status[model.SeatPosition{Row: rowLabel, Col: c}]
			if !ok {
				st = model.SeatAvailable
			}
			row = append(row, GridCell{Row: rowLabel, Col: c, Status: st})
		}
		cells = append(cells, row)
	}
	return Grid{
		ShowID:     showID,
		ScreenName: geo.ScreenName,
		Rows:       geo.Rows,
		Cols:       geo.Cols,
		Cells:      cells,
	}, nil
}
