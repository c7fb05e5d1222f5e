package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// subject returns the authenticated user ID as a string for use in rate
// limit keys, or "anon" on public routes.
func subject(c echo.Context) string {
	switch v := c.Get(CtxUserID).(type) {
	case uint64:
		if v != 0 {
			return strconv.FormatUint(v, 10)
		}
	case string:
		if v != "" {
			return v
		}
	}
	return "anon"
}
