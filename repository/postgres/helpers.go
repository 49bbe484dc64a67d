package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// limitArg maps a non-positive limit to NULL, which Postgres treats as LIMIT ALL.
func limitArg(limit int) interface{} {
	if limit <= 0 {
		return nil
	}
	if limit > 500 {
		return 500
	}
	return limit
}

type scanner interface {
	Scan(dest ...interface{}) error
}
