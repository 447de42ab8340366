package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-booking-core/internal/config"
	"github.com/iliyamo/cinema-booking-core/internal/utils"
)

const secret = "mw-secret"

func protected() *echo.Echo {
	e := echo.New()
	e.GET("/me", func(c echo.Context) error {
		id, ok := UserID(c)
		if !ok {
			return c.NoContent(http.StatusTeapot)
		}
		return c.JSON(http.StatusOK, echo.Map{"id": id, "role": c.Get(CtxRole)})
	}, JWTAuth(secret), RequireRole("ADMIN"))
	return e
}

func call(e *echo.Echo, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func sign(t *testing.T, method jwt.SigningMethod, key interface{}, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func TestJWTAuth(t *testing.T) {
	e := protected()

	good, err := utils.NewAccessToken(secret, 7, "ADMIN", time.Minute)
	require.NoError(t, err)
	rec := call(e, "Bearer "+good.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":7,"role":"ADMIN"}`, rec.Body.String())

	customer, err := utils.NewAccessToken(secret, 7, "CUSTOMER", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, call(e, "Bearer "+customer.Token).Code)

	other, err := utils.NewAccessToken("another-secret", 7, "ADMIN", time.Minute)
	require.NoError(t, err)

	future := time.Now().Add(time.Hour).Unix()
	tests := map[string]string{
		"no header":    "",
		"not bearer":   "Basic abc",
		"garbage":      "Bearer not-a-jwt",
		"wrong secret": "Bearer " + other.Token,
		"expired": "Bearer " + sign(t, jwt.SigningMethodHS256, []byte(secret),
			jwt.MapClaims{"sub": 7, "role": "ADMIN", "exp": time.Now().Add(-time.Minute).Unix()}),
		"no exp": "Bearer " + sign(t, jwt.SigningMethodHS256, []byte(secret),
			jwt.MapClaims{"sub": 7, "role": "ADMIN"}),
		"zero subject": "Bearer " + sign(t, jwt.SigningMethodHS256, []byte(secret),
			jwt.MapClaims{"sub": 0, "role": "ADMIN", "exp": future}),
		"none alg": "Bearer " + sign(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType,
			jwt.MapClaims{"sub": 7, "role": "ADMIN", "exp": future}),
	}
	for name, auth := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, http.StatusUnauthorized, call(e, auth).Code)
		})
	}
}

func TestJWTAuth_StringSubject(t *testing.T) {
	e := protected()
	tok := sign(t, jwt.SigningMethodHS256, []byte(secret),
		jwt.MapClaims{"sub": "42", "role": "ADMIN", "exp": time.Now().Add(time.Minute).Unix()})
	rec := call(e, "Bearer "+tok)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":42,"role":"ADMIN"}`, rec.Body.String())
}

func TestSubjectID(t *testing.T) {
	tests := []struct {
		in   interface{}
		want uint64
		ok   bool
	}{
		{float64(3), 3, true},
		{float64(2.5), 0, false},
		{float64(-1), 0, false},
		{"15", 15, true},
		{"0", 0, false},
		{"x", 0, false},
		{uint64(9), 9, true},
		{5, 5, true},
		{-5, 0, false},
		{nil, 0, false},
	}
	for _, tt := range tests {
		got, ok := SubjectID(tt.in)
		assert.Equal(t, tt.ok, ok, "%#v", tt.in)
		assert.Equal(t, tt.want, got, "%#v", tt.in)
	}
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/bookings/hold", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.1")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/bookings/hold")

	cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: "user_route"}
	assert.Equal(t, "rl:user:anon:route:POST /v1/bookings/hold", buildRateKey(cfg, c))

	c.Set(CtxUserID, float64(12))
	assert.Equal(t, "rl:user:12:route:POST /v1/bookings/hold", buildRateKey(cfg, c))

	cfg.KeyStrategy = "ip"
	assert.Equal(t, "rl:ip:10.0.0.1", buildRateKey(cfg, c))

	cfg.KeyStrategy = "something-else"
	assert.Equal(t, "rl:ip:10.0.0.1:user:12:route:POST /v1/bookings/hold", buildRateKey(cfg, c))
}

func TestAsInt64(t *testing.T) {
	assert.Equal(t, int64(4), asInt64(int64(4)))
	assert.Equal(t, int64(4), asInt64(4))
	assert.Equal(t, int64(4), asInt64(4.9))
	assert.Equal(t, int64(12), asInt64("12"))
	assert.Equal(t, int64(0), asInt64("nope"))
	assert.Equal(t, int64(0), asInt64(nil))
}

func TestNewTokenBucket_DisabledPassesThrough(t *testing.T) {
	e := echo.New()
	e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) },
		NewTokenBucket(config.RateLimitConfig{Enabled: true}, nil, nil))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
