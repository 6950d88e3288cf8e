package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

type errorKind int

const (
	kindInternal errorKind = iota
	kindNotFound
	kindConflict
	kindUnavailable
)

// storeError categorises pgx failures for the repositories.RepositoryError contract.
type storeError struct {
	op   string
	kind errorKind
	err  error
}

func (e *storeError) Error() string {
	if e.err == nil {
		return e.op
	}
	return fmt.Sprintf("%s: %v", e.op, e.err)
}

func (e *storeError) Unwrap() error { return e.err }

func (e *storeError) IsNotFound() bool    { return e.kind == kindNotFound }
func (e *storeError) IsConflict() bool    { return e.kind == kindConflict }
func (e *storeError) IsUnavailable() bool { return e.kind == kindUnavailable }

// wrapError maps driver-level failures onto the categorised error contract.
func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}

	kind := kindInternal
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		kind = kindNotFound
	default:
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case pgUniqueViolation, pgForeignKeyViolation, pgCheckViolation:
				kind = kindConflict
			}
		} else if pgconn.Timeout(err) {
			kind = kindUnavailable
		}
	}

	return &storeError{op: op, kind: kind, err: err}
}

func notFoundError(op string, msg string) error {
	return &storeError{op: op, kind: kindNotFound, err: errors.New(msg)}
}
