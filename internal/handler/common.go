package handler // handler defines http handlers

import (
	"errors"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-booking-core/internal/middleware"
)

// getUserID extracts the user_id stored by JWTAuth and converts it to uint64.
func getUserID(c echo.Context) (uint64, error) {
	if id, ok := middleware.UserID(c); ok {
		return id, nil
	}
	return 0, errors.New("invalid user_id in context")
}
