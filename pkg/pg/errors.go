package pg

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrConnectionFailed    = errors.New("failed to open db connection")
	ErrConfigParse         = errors.New("failed to parse db config")
	ErrHealthcheckFailed   = errors.New("healthcheck failed, connection is not available")
	ErrMigrationsFailed    = errors.New("failed to apply migrations")
	ErrMigrationsDirAbsent = errors.New("migrations directory not found")
)

// IsNotFound detects pgx.ErrNoRows for uniform "not found" handling.
func IsNotFound(err error) bool {
	return err != nil && errors.Is(err, pgx.ErrNoRows)
}

// IsDuplicateKey detects unique constraint violations (SQLSTATE 23505).
func IsDuplicateKey(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
