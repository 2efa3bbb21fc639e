package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequireRole returns middleware enforcing that the authenticated user holds
// one of the given roles. It assumes SessionAuth already stored the role in
// the context; a missing or unknown role is rejected with 403. This is the
// coarse gate only; per-resource ownership checks live in the authz package.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get("role").(string)
			if !ok || !allowed[role] {
				return c.JSON(http.StatusForbidden, echo.Map{
					"data": nil, "error": "forbidden", "status": http.StatusForbidden,
					"message": "insufficient role",
				})
			}
			return next(c)
		}
	}
}
