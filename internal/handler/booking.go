package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking-core/internal/model"
	"github.com/iliyamo/cinema-booking-core/internal/service"
)

// HoldCreator creates seat holds.
type HoldCreator interface {
	CreateHold(ctx context.Context, req service.HoldRequest) (service.HoldResult, error)
}

// BookingConfirmer confirms held bookings.
type BookingConfirmer interface {
	Confirm(ctx context.Context, bookingID, userID uint64) (service.ConfirmResult, error)
}

// BookingGetter reads a booking on behalf of its owner.
type BookingGetter interface {
	Get(ctx context.Context, bookingID, userID uint64) (*model.Booking, error)
}

// BookingHandler serves the hold, confirm and lookup endpoints.  It assumes
// JWT authentication and role checks already ran in middleware.
type BookingHandler struct {
	Holds    HoldCreator
	Confirms BookingConfirmer
	Bookings BookingGetter
	Log      *zap.Logger
}

// NewBookingHandler wires a BookingHandler and panics on a nil dependency.
func NewBookingHandler(holds HoldCreator, confirms BookingConfirmer, bookings BookingGetter, log *zap.Logger) *BookingHandler {
	if holds == nil || confirms == nil || bookings == nil {
		panic("nil service passed to NewBookingHandler")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &BookingHandler{Holds: holds, Confirms: confirms, Bookings: bookings, Log: log}
}

type holdRequest struct {
	ShowID      uint64   `json:"showId"`
	Seats       []string `json:"seats"`
	HoldMinutes *int     `json:"holdMinutes"`
}

type holdResponse struct {
	Message       string `json:"message"`
	BookingID     uint64 `json:"bookingId"`
	HoldMinutes   int    `json:"holdMinutes"`
	HoldExpiresAt string `json:"holdExpiresAt"`
	ExpiresIn     int64  `json:"expiresIn"`
}

// Hold handles POST /v1/bookings/hold.  holdMinutes may be omitted to get
// the default window; an explicit value must be positive.
func (h *BookingHandler) Hold(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body holdRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.ShowID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "showId is required"})
	}
	if len(body.Seats) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seats is required"})
	}
	minutes := 0
	if body.HoldMinutes != nil {
		if *body.HoldMinutes <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "holdMinutes must be positive"})
		}
		minutes = *body.HoldMinutes
	}

	res, err := h.Holds.CreateHold(c.Request().Context(), service.HoldRequest{
		ShowID:      body.ShowID,
		UserID:      userID,
		Seats:       body.Seats,
		HoldMinutes: minutes,
	})
	if err != nil {
		return writeServiceError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, holdResponse{
		Message:       "Seats held successfully",
		BookingID:     res.BookingID,
		HoldMinutes:   res.HoldMinutes,
		HoldExpiresAt: res.HoldExpiresAt.UTC().Format(time.RFC3339),
		ExpiresIn:     res.ExpiresIn,
	})
}

type confirmRequest struct {
	BookingID uint64 `json:"bookingId"`
}

// Confirm handles POST /v1/bookings/confirm.
func (h *BookingHandler) Confirm(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body confirmRequest
	if err := c.Bind(&body); err != nil || body.BookingID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "bookingId is required"})
	}
	res, err := h.Confirms.Confirm(c.Request().Context(), body.BookingID, userID)
	if err != nil {
		return writeServiceError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":     "Booking confirmed",
		"bookingId":   res.BookingID,
		"totalAmount": res.TotalAmount,
	})
}

type bookingResponse struct {
	ID            uint64   `json:"id"`
	ShowID        uint64   `json:"showId"`
	Seats         []string `json:"seats"`
	Status        string   `json:"status"`
	PaymentStatus string   `json:"paymentStatus"`
	TotalAmount   int64    `json:"totalAmount"`
	HoldExpiresAt *string  `json:"holdExpiresAt"`
	CreatedAt     string   `json:"createdAt"`
}

// GetBooking handles GET /v1/bookings/:id for the booking's owner.
func (h *BookingHandler) GetBooking(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	b, err := h.Bookings.Get(c.Request().Context(), id, userID)
	if err != nil {
		return writeServiceError(c, h.Log, err)
	}
	resp := bookingResponse{
		ID:            b.ID,
		ShowID:        b.ShowID,
		Seats:         b.SeatLabels,
		Status:        b.Status,
		PaymentStatus: b.PaymentStatus,
		TotalAmount:   b.TotalAmount,
		CreatedAt:     b.CreatedAt.UTC().Format(time.RFC3339),
	}
	if b.HoldExpiresAt != nil {
		s := b.HoldExpiresAt.UTC().Format(time.RFC3339)
		resp.HoldExpiresAt = &s
	}
	return c.JSON(http.StatusOK, resp)
}
