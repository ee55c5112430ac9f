package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"pharmastock/internal/core/apperror"
)

func TestMapError(t *testing.T) {
	notFound := apperror.NewNotFound("batch", "b-1")

	tests := []struct {
		name     string
		err      error
		wantCode string
		wantSame bool
	}{
		{
			name:     "unique violation",
			err:      &pgconn.PgError{Code: pgUniqueViolation, ConstraintName: "products_barcode_key"},
			wantCode: apperror.CodeDuplicate,
		},
		{
			name:     "foreign key violation",
			err:      fmt.Errorf("copy into batches: %w", &pgconn.PgError{Code: pgForeignKeyViolation}),
			wantCode: apperror.CodeInsufficientContext,
		},
		{
			name:     "check violation",
			err:      &pgconn.PgError{Code: pgCheckViolation, ConstraintName: "batches_quantity_available_check"},
			wantCode: apperror.CodeValidation,
		},
		{
			name:     "other driver error",
			err:      errors.New("connection reset by peer"),
			wantCode: apperror.CodePersistence,
		},
		{
			name:     "apperror passes through",
			err:      notFound,
			wantSame: true,
		},
		{
			name:     "context error passes through",
			err:      context.Canceled,
			wantSame: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err, "product", "write product")
			if tt.wantSame {
				assert.Equal(t, tt.err, got)
				return
			}
			assert.Equal(t, tt.wantCode, apperror.CodeOf(got))
			assert.ErrorIs(t, got, tt.err)
		})
	}
}

func TestMapError_BarcodeField(t *testing.T) {
	err := MapError(&pgconn.PgError{Code: pgUniqueViolation, ConstraintName: "products_barcode_key"}, "product", "insert")

	appErr, ok := apperror.AsAppError(err)
	assert.True(t, ok)
	assert.Equal(t, "barcode", appErr.Details["field"])
	assert.NoError(t, MapError(nil, "product", "insert"))
}
