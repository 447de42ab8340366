package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking-core/internal/logger"
	"github.com/iliyamo/cinema-booking-core/internal/service"
)

// writeServiceError maps a booking service error onto an HTTP response.
// Unknown errors are logged and reported as 500 without detail.
func writeServiceError(c echo.Context, log *zap.Logger, err error) error {
	var unavailable *service.SeatsUnavailableError
	var badLabel *service.InvalidSeatLabelError
	switch {
	case errors.As(err, &unavailable):
		return c.JSON(http.StatusConflict, echo.Map{"error": "seats unavailable", "seats": unavailable.Labels})
	case errors.As(err, &badLabel):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": badLabel.Error(), "seat": badLabel.Label})
	case errors.Is(err, service.ErrInvalidInput):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, service.ErrWrongState):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": service.ErrWrongState.Error()})
	case errors.Is(err, service.ErrHoldExpired):
		return c.JSON(http.StatusGone, echo.Map{"error": "hold expired, please hold the seats again"})
	}
	logger.WithContext(c.Request().Context(), log).Error("request failed",
		zap.String("path", c.Path()), zap.Error(err))
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
