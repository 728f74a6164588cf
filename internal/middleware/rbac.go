package middleware

import (
	"net/http"
	"slices"

	"github.com/labstack/echo/v4"
)

// RequireRole enforces that the authenticated request carries one of roles.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			value, ok := c.Get(ContextKeyRole).(string)
			if !ok || value == "" {
				return reject(c, http.StatusForbidden, "missing role")
			}
			if !slices.Contains(roles, value) {
				return reject(c, http.StatusForbidden, "insufficient permissions")
			}
			return next(c)
		}
	}
}
