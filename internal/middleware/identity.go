package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// UserID returns the authenticated user id stored by JWTAuth. The sub
// claim decodes as float64 from JSON; other numeric and string forms are
// accepted for tokens minted elsewhere.
func UserID(c echo.Context) (uint64, bool) {
	switch v := c.Get("user_id").(type) {
	case float64:
		if v > 0 {
			return uint64(v), true
		}
	case uint64:
		return v, v > 0
	case int64:
		if v > 0 {
			return uint64(v), true
		}
	case int:
		if v > 0 {
			return uint64(v), true
		}
	case string:
		if id, err := strconv.ParseUint(v, 10, 64); err == nil && id > 0 {
			return id, true
		}
	}
	return 0, false
}

// Role returns the role claim stored by JWTAuth.
func Role(c echo.Context) string {
	r, _ := c.Get("role").(string)
	return r
}

// userKey identifies the caller in rate limit keys; "anon" when
// unauthenticated.
func userKey(c echo.Context) string {
	if id, ok := UserID(c); ok {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}
