// Package handler implements the HTTP resource handlers. Every response uses
// the shared envelope {data, error, status, message} and every failure maps
// onto the fixed taxonomy: unauthenticated, forbidden, not_found, validation,
// conflict, internal.
package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/reading-practice/internal/repository"
)

// Envelope is the uniform response body.
type Envelope struct {
	Data    interface{} `json:"data"`
	Error   string      `json:"error,omitempty"`
	Status  int         `json:"status"`
	Message string      `json:"message,omitempty"`
}

// Error codes surfaced in the envelope's error field.
const (
	codeUnauthenticated = "unauthenticated"
	codeForbidden       = "forbidden"
	codeNotFound        = "not_found"
	codeValidation      = "validation"
	codeConflict        = "conflict"
	codeInternal        = "internal"
)

func respond(c echo.Context, status int, data interface{}) error {
	return c.JSON(status, Envelope{Data: data, Status: status})
}

func respondErr(c echo.Context, status int, code, message string) error {
	return c.JSON(status, Envelope{Status: status, Error: code, Message: message})
}

func badRequest(c echo.Context, message string) error {
	return respondErr(c, http.StatusBadRequest, codeValidation, message)
}

func unauthenticated(c echo.Context, message string) error {
	return respondErr(c, http.StatusUnauthorized, codeUnauthenticated, message)
}

func forbidden(c echo.Context) error {
	return respondErr(c, http.StatusForbidden, codeForbidden, "not allowed")
}

// storageErr downgrades repository failures to the generic taxonomy.
// ErrNotFound and ErrConflict keep their specific statuses; anything else is
// a 500 with a message that leaks nothing.
func storageErr(c echo.Context, err error, notFoundMsg string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return respondErr(c, http.StatusNotFound, codeNotFound, notFoundMsg)
	case errors.Is(err, repository.ErrConflict):
		return respondErr(c, http.StatusConflict, codeConflict, "already exists")
	default:
		c.Logger().Errorf("storage error: %v", err)
		return respondErr(c, http.StatusInternalServerError, codeInternal, "something went wrong")
	}
}
