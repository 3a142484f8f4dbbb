package repo

import (
	"errors"

	"github.com/lib/pq"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrDuplicateEmail    = errors.New("email already registered")
	ErrDuplicateUsername = errors.New("username already taken")
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"

	usersEmailKey    = "users_email_key"
	usersUsernameKey = "users_username_key"
)

// pqCode returns the SQLSTATE and constraint of a PostgreSQL error.
func pqCode(err error) (code, constraint string, ok bool) {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return "", "", false
	}
	return string(pqErr.Code), pqErr.Constraint, true
}
