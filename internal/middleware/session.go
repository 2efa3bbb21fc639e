// Package middleware provides shared request processing: session
// authentication, role enforcement, Redis rate limiting and caching, and
// Prometheus instrumentation.
package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/reading-practice/internal/session"
)

// identityKey is where SessionAuth stores the resolved identity on the echo
// context; user_id and role are also set individually for downstream
// middleware that only needs those.
const identityKey = "identity"

// SessionAuth returns middleware that resolves the opaque session token from
// the session_token cookie or a Bearer header against the store. Requests
// without a live session are rejected with 401 before any handler runs.
func SessionAuth(store *session.Store) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := session.FromRequest(c.Request())
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"data": nil, "error": "unauthenticated", "status": http.StatusUnauthorized,
					"message": "sign in required",
				})
			}
			id, ok := store.Get(token)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"data": nil, "error": "unauthenticated", "status": http.StatusUnauthorized,
					"message": "session expired or invalid",
				})
			}
			c.Set(identityKey, id)
			c.Set("session_token", token)
			c.Set("user_id", id.UserID)
			c.Set("role", id.Role)
			return next(c)
		}
	}
}

// CurrentIdentity returns the identity stored by SessionAuth. The boolean is
// false on routes where the middleware did not run.
func CurrentIdentity(c echo.Context) (session.Identity, bool) {
	id, ok := c.Get(identityKey).(session.Identity)
	return id, ok
}

// CurrentToken returns the raw session token for the request, if any.
func CurrentToken(c echo.Context) (string, bool) {
	tok, ok := c.Get("session_token").(string)
	return tok, ok
}
