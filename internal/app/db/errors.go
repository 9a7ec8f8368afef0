package db

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrRoomIDTaken signals that a freshly minted room identifier collided with
// an existing row; the caller mints a new identifier and retries.
var ErrRoomIDTaken = errors.New("room identifier already taken")

// IsUniqueViolation checks if the error is a PostgreSQL unique constraint violation (code 23505).
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
