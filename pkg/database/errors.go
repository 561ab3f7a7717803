package database

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/noor-academy/backend/pkg/apperr"
)

// UniqueViolation is the SQLSTATE for a unique constraint violation.
const UniqueViolation = "23505"

// DBTX is satisfied by *pgxpool.Pool and pgx.Tx so helpers can run in or out of a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// IsNoRows reports whether err is pgx.ErrNoRows.
func IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// IsUniqueViolation reports whether err is a Postgres unique violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == UniqueViolation
}

// StoreError translates a driver error into an apperr kind:
// no rows is NotFound, a unique violation is Conflict, anything else is Upstream.
func StoreError(err error, entity string) error {
	switch {
	case err == nil:
		return nil
	case IsNoRows(err):
		return apperr.NotFound(entity + " not found")
	case IsUniqueViolation(err):
		return apperr.Wrap(err, apperr.KindConflict, entity+" already exists")
	default:
		var ae *apperr.Error
		if errors.As(err, &ae) {
			return err
		}
		return apperr.Upstream(err, "store: "+entity)
	}
}
