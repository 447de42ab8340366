package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking-core/internal/service"
)

// GridReader returns the seat availability grid of a show.
type GridReader interface {
	GetSeatGrid(ctx context.Context, showID uint64) (service.Grid, error)
}

// ShowSeatsHandler serves the public seat grid.
type ShowSeatsHandler struct {
	Grid GridReader
	Log  *zap.Logger
}

// NewShowSeatsHandler wires a ShowSeatsHandler.
func NewShowSeatsHandler(grid GridReader, log *zap.Logger) *ShowSeatsHandler {
	if grid == nil {
		panic("nil grid reader passed to NewShowSeatsHandler")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ShowSeatsHandler{Grid: grid, Log: log}
}

// GetSeats handles GET /v1/shows/:id/seats.
func (h *ShowSeatsHandler) GetSeats(c echo.Context) error {
	showID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || showID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid show id"})
	}
	g, err := h.Grid.GetSeatGrid(c.Request().Context(), showID)
	if err != nil {
		return writeServiceError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Seat grid",
		"screen": echo.Map{
			"name": g.ScreenName,
			"rows": g.Rows,
			"cols": g.Cols,
		},
		"grid": g.Cells,
	})
}
