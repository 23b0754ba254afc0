package repository

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

// MapError translates database errors to domain errors. sql.ErrNoRows maps
// to notFoundErr and a PostgreSQL unique violation (23505) to conflictErr.
// Other errors pass through unchanged.
func MapError(err error, notFoundErr, conflictErr error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return notFoundErr
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return conflictErr
	}

	return err
}

// IsUniqueViolation reports whether err is a PostgreSQL unique constraint
// violation. Used where a write conflict is an expected, configurable
// outcome rather than a plain error.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
