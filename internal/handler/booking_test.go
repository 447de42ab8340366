package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-booking-core/internal/middleware"
	"github.com/iliyamo/cinema-booking-core/internal/model"
	"github.com/iliyamo/cinema-booking-core/internal/repository"
	"github.com/iliyamo/cinema-booking-core/internal/service"
	"github.com/iliyamo/cinema-booking-core/internal/utils"
)

const testSecret = "test-secret"

var testNow = time.Date(2026, 10, 19, 18, 0, 0, 0, time.UTC)

type testServer struct {
	e     *echo.Echo
	store *repository.MemoryStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := repository.NewMemoryStore()
	deps := service.Deps{
		Seats:    store,
		Bookings: store,
		Clock:    service.ClockFunc(func() time.Time { return testNow }),
		Catalog:  repository.NewMemoryCatalog(model.ShowGeometry{ShowID: 1, ScreenName: "Screen 1", Rows: 5, Cols: 10, Price: 200}),
	}
	bookings := NewBookingHandler(
		service.NewHoldManager(deps, service.HoldConfig{DefaultMinutes: 10, MaxMinutes: 30}),
		service.NewConfirmer(deps),
		service.NewBookingReader(deps),
		nil,
	)
	seats := NewShowSeatsHandler(service.NewSeatGrid(deps), nil)

	e := echo.New()
	e.GET("/v1/shows/:id/seats", seats.GetSeats)
	g := e.Group("/v1/bookings", middleware.JWTAuth(testSecret))
	g.POST("/hold", bookings.Hold, middleware.RequireRole("ADMIN"))
	g.POST("/confirm", bookings.Confirm, middleware.RequireRole("ADMIN", "CUSTOMER"))
	g.GET("/:id", bookings.GetBooking, middleware.RequireRole("ADMIN", "CUSTOMER"))
	return &testServer{e: e, store: store}
}

func (s *testServer) do(t *testing.T, method, path string, user uint64, role string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if user != 0 {
		tok, err := utils.NewAccessToken(testSecret, user, role, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+tok.Token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHoldConfirmFlow(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/v1/bookings/hold", 1, "ADMIN", map[string]any{"showId": 1, "seats": []string{"A-1", "A-2"}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	held := decode(t, rec)
	assert.Equal(t, "Seats held successfully", held["message"])
	assert.EqualValues(t, 10, held["holdMinutes"])
	assert.EqualValues(t, 600, held["expiresIn"])
	assert.Equal(t, "2026-10-19T18:10:00Z", held["holdExpiresAt"])
	bookingID := uint64(held["bookingId"].(float64))
	require.NotZero(t, bookingID)

	rec = s.do(t, http.MethodPost, "/v1/bookings/confirm", 1, "ADMIN", map[string]any{"bookingId": bookingID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	confirmed := decode(t, rec)
	assert.EqualValues(t, 400, confirmed["totalAmount"])

	rec = s.do(t, http.MethodGet, "/v1/bookings/"+strconv.FormatUint(bookingID, 10), 1, "CUSTOMER", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode(t, rec)
	assert.Equal(t, "CONFIRMED", got["status"])
	assert.Equal(t, "PAID", got["paymentStatus"])
	assert.Nil(t, got["holdExpiresAt"])

	rec = s.do(t, http.MethodPost, "/v1/bookings/confirm", 1, "ADMIN", map[string]any{"bookingId": bookingID})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "booking not in PENDING state", decode(t, rec)["error"])
}

func TestHold_Conflict(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/v1/bookings/hold", 1, "ADMIN", map[string]any{"showId": 1, "seats": []string{"A-1", "A-2"}})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(t, http.MethodPost, "/v1/bookings/hold", 2, "ADMIN", map[string]any{"showId": 1, "seats": []string{"A-2", "A-3"}})
	assert.Equal(t, http.StatusConflict, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, []any{"A-2"}, body["seats"])
}

func TestHold_BadRequests(t *testing.T) {
	s := newTestServer(t)
	tests := []struct {
		name string
		body any
		code int
	}{
		{"missing show", map[string]any{"seats": []string{"A-1"}}, http.StatusBadRequest},
		{"missing seats", map[string]any{"showId": 1}, http.StatusBadRequest},
		{"zero minutes", map[string]any{"showId": 1, "seats": []string{"A-1"}, "holdMinutes": 0}, http.StatusBadRequest},
		{"too many minutes", map[string]any{"showId": 1, "seats": []string{"A-1"}, "holdMinutes": 31}, http.StatusBadRequest},
		{"bad label", map[string]any{"showId": 1, "seats": []string{"Z-1"}}, http.StatusBadRequest},
		{"unknown show", map[string]any{"showId": 9, "seats": []string{"A-1"}}, http.StatusNotFound},
		{"not json", "nope", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/v1/bookings/hold", 1, "ADMIN", tt.body)
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())
		})
	}
}

func TestHold_AuthAndRoles(t *testing.T) {
	s := newTestServer(t)
	body := map[string]any{"showId": 1, "seats": []string{"A-1"}}

	rec := s.do(t, http.MethodPost, "/v1/bookings/hold", 0, "", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/v1/bookings/hold", 1, "CUSTOMER", body)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestConfirm_OtherUserIsForbidden(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/v1/bookings/hold", 1, "ADMIN", map[string]any{"showId": 1, "seats": []string{"B-1"}})
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode(t, rec)["bookingId"]

	rec = s.do(t, http.MethodPost, "/v1/bookings/confirm", 2, "CUSTOMER", map[string]any{"bookingId": id})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodGet, "/v1/bookings/1", 2, "CUSTOMER", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPost, "/v1/bookings/confirm", 1, "ADMIN", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/v1/bookings/abc", 1, "ADMIN", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetSeats(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/v1/bookings/hold", 1, "ADMIN", map[string]any{"showId": 1, "seats": []string{"A-3"}})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(t, http.MethodGet, "/v1/shows/1/seats", 0, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Screen struct {
			Name string `json:"name"`
			Rows int    `json:"rows"`
			Cols int    `json:"cols"`
		} `json:"screen"`
		Grid [][]service.GridCell `json:"grid"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Screen 1", body.Screen.Name)
	assert.Equal(t, 5, body.Screen.Rows)
	require.Len(t, body.Grid, 5)
	assert.Equal(t, service.GridCell{Row: "A", Col: 3, Status: "held"}, body.Grid[0][2])
	assert.Equal(t, "available", body.Grid[4][9].Status)

	rec = s.do(t, http.MethodGet, "/v1/shows/0/seats", 0, "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = s.do(t, http.MethodGet, "/v1/shows/8/seats", 0, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
