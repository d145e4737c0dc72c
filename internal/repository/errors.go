package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrProjectNotFound = errors.New("project not found")
	// ErrDuplicatePending is returned when reopening a request would leave two
	// pending requests for the same requester and project.
	ErrDuplicatePending = errors.New("a pending request already exists")
)

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func isUniqueViolation(err error) bool     { return pgErrorCode(err) == "23505" }
func isForeignKeyViolation(err error) bool { return pgErrorCode(err) == "23503" }
