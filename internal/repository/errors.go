// Package repository is the data access layer: one repo per entity, each a
// thin façade over single SQL statements. Sentinel errors let handlers map
// failures onto the HTTP taxonomy without inspecting driver errors.
package repository

import (
	"errors"
	"strings"
)

// ErrNotFound is returned when a row does not exist. Handlers translate it
// into HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a unique key is violated, such as reusing an
// email or class name. Handlers translate it into HTTP 409.
var ErrConflict = errors.New("conflict")

// isDuplicate reports whether err is a MySQL duplicate-key error (1062).
func isDuplicate(err error) bool {
	return err != nil && strings.Contains(err.Error(), "1062")
}
