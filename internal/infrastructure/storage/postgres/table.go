package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"pharmastock/internal/core/apperror"
	"pharmastock/internal/core/id"
)

// Table holds the common CRUD plumbing for a table mapped onto T via "db" tags.
// Repositories embed it.
type Table[T any] struct {
	TxManager  *TxManager
	Name       string
	Entity     string // name used in error details
	SelectCols []string
}

// NewTable builds a Table whose columns are the "db" tags of T.
func NewTable[T any](txManager *TxManager, name, entity string) Table[T] {
	return Table[T]{
		TxManager:  txManager,
		Name:       name,
		Entity:     entity,
		SelectCols: ExtractDBColumns[T](),
	}
}

// Builder returns a squirrel builder with PostgreSQL placeholders.
func (t Table[T]) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// Select starts a SELECT of all mapped columns.
func (t Table[T]) Select() squirrel.SelectBuilder {
	return t.Builder().Select(t.SelectCols...).From(t.Name)
}

// Querier returns the transaction in ctx or the pool.
func (t Table[T]) Querier(ctx context.Context) Querier {
	return t.TxManager.GetQuerier(ctx)
}

// GetByID loads one row or returns an apperror NOT_FOUND.
func (t Table[T]) GetByID(ctx context.Context, rowID id.ID) (*T, error) {
	sql, args, err := t.Select().Where(squirrel.Eq{"id": rowID}).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var row T
	if err := pgxscan.Get(ctx, t.Querier(ctx), &row, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound(t.Entity, rowID.String())
		}
		return nil, MapError(err, t.Entity, "load "+t.Entity)
	}
	return &row, nil
}

// SelectMany runs q and scans every row.
func (t Table[T]) SelectMany(ctx context.Context, q squirrel.SelectBuilder) ([]T, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	out := make([]T, 0)
	if err := pgxscan.Select(ctx, t.Querier(ctx), &out, sql, args...); err != nil {
		return nil, MapError(err, t.Entity, "list "+t.Entity)
	}
	return out, nil
}

// Insert writes v using its "db" tags.
func (t Table[T]) Insert(ctx context.Context, v *T) error {
	data := StructToMap(v)
	if len(data) == 0 {
		return fmt.Errorf("no db tags found on %T", v)
	}

	sql, args, err := t.Builder().Insert(t.Name).SetMap(data).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := t.Querier(ctx).Exec(ctx, sql, args...); err != nil {
		return MapError(err, t.Entity, "insert "+t.Entity)
	}
	return nil
}

// CopyRows bulk-writes values with COPY. It must run inside a transaction.
func (t Table[T]) CopyRows(ctx context.Context, values []*T) error {
	rows := make([][]any, 0, len(values))
	for _, v := range values {
		rows = append(rows, RowValues(v, t.SelectCols))
	}
	if _, err := NewBatchInserter(t.TxManager).CopyFromSlice(ctx, t.Name, t.SelectCols, rows); err != nil {
		return MapError(err, t.Entity, "copy "+t.Entity)
	}
	return nil
}
