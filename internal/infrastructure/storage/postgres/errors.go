package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"pharmastock/internal/core/apperror"
)

// PostgreSQL error codes the repositories translate.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// MapError translates a driver error into an apperror. Errors that already
// are apperrors, and context errors, pass through unchanged.
func MapError(err error, entity, message string) error {
	if err == nil {
		return nil
	}
	if _, ok := apperror.AsAppError(err); ok {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return apperror.NewDuplicate(entity, constraintField(pgErr), "").WithCause(err)
		case pgForeignKeyViolation:
			return apperror.NewInsufficientContext(entity + " references a missing record").
				WithDetail("constraint", pgErr.ConstraintName).
				WithCause(err)
		case pgCheckViolation:
			return apperror.NewValidation(entity + " violates " + pgErr.ConstraintName).
				WithCause(err)
		}
	}
	return apperror.NewPersistence(message, err)
}

func constraintField(pgErr *pgconn.PgError) string {
	switch pgErr.ConstraintName {
	case "products_barcode_key":
		return "barcode"
	case "batches_pkey", "products_pkey":
		return "id"
	}
	return pgErr.ConstraintName
}
