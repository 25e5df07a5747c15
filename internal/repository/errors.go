// Package repository holds the MySQL data access layer. Repositories speak
// in model types; conversion to optimizer inputs happens in the service.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when a row does not exist or is not visible to
// the caller. Handlers translate it into HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller attempts an operation on an
// event they do not own. Handlers translate it into HTTP 403.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a write collides with existing state, such
// as a duplicate table label. Handlers translate it into HTTP 409.
var ErrConflict = errors.New("conflict")

// ErrEmailExists is returned by UserRepo.Create for a taken address.
var ErrEmailExists = errors.New("email already exists")

// ErrUnknownGuest is returned when a link or preference names a guest that
// does not belong to the event.
var ErrUnknownGuest = errors.New("guest does not belong to event")

// isDuplicate reports a MySQL duplicate key error (1062).
func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}
