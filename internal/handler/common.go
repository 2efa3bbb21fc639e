package handler

import (
	"context"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	appmw "github.com/iliyamo/reading-practice/internal/middleware"
	"github.com/iliyamo/reading-practice/internal/session"
)

// dbTimeout bounds every single-statement database call made from a handler.
const dbTimeout = 3 * time.Second

func dbCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), dbTimeout)
}

// identity pulls the authenticated identity injected by SessionAuth.
func identity(c echo.Context) (session.Identity, bool) {
	return appmw.CurrentIdentity(c)
}

// pathID parses the :id route parameter.
func pathID(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	return id, err == nil && id != 0
}

// queryID parses an optional numeric query parameter; absent returns (0, true).
func queryID(c echo.Context, name string) (uint64, bool) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, true
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	return id, err == nil
}
