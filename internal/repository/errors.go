// Package repository defines error types that are reused across
// multiple repositories. These sentinel values allow higher layers such
// as services and handlers to distinguish between failure scenarios.
// For example, ErrForbidden indicates that the current user is not
// authorized to act on a resource owned by someone else, while
// ErrConflict signals that an operation cannot proceed because of
// dependent records (e.g. deleting a zone that still owns tables).
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own. Handlers translate this into HTTP 403.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a delete or update cannot be performed
// because of conflicting state, such as deleting a table that still has
// bookings. Handlers translate this into HTTP 409.
var ErrConflict = errors.New("conflict")

// ErrRefUsed is returned by the payment reference repository when a
// slip reference has already been consumed by a different order.
// Handlers translate this into HTTP 409.
var ErrRefUsed = errors.New("slip reference already used")

// isDuplicateEntry reports whether err is a MySQL unique key violation.
func isDuplicateEntry(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
