package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// SubjectID converts a "sub" claim into a user id.  JSON numbers decode
// as float64; string subjects must be decimal.
func SubjectID(v interface{}) (uint64, bool) {
	switch t := v.(type) {
	case float64:
		if t <= 0 || t != float64(uint64(t)) {
			return 0, false
		}
		return uint64(t), true
	case string:
		id, err := strconv.ParseUint(t, 10, 64)
		if err != nil || id == 0 {
			return 0, false
		}
		return id, true
	case uint64:
		return t, t > 0
	case int:
		if t <= 0 {
			return 0, false
		}
		return uint64(t), true
	}
	return 0, false
}

// UserID returns the authenticated user id stored by JWTAuth.
func UserID(c echo.Context) (uint64, bool) {
	return SubjectID(c.Get(CtxUserID))
}

// userKey is the user part of rate limit keys; "anon" without a token.
func userKey(c echo.Context) string {
	if id, ok := UserID(c); ok {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}
