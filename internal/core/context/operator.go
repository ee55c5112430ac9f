// Package context provides request-scoped values extraction.
package context

import (
	"context"
)

// OperatorContext identifies the employee performing stock operations.
// Its OperatorID is recorded as entry_by on every lot the operator creates.
type OperatorContext struct {
	OperatorID  string
	Name        string
	Roles       []string
	LocationIDs []string // Locations the operator may stage stock for
}

type operatorContextKey struct{}

// WithOperator adds OperatorContext to context.
func WithOperator(ctx context.Context, op *OperatorContext) context.Context {
	return context.WithValue(ctx, operatorContextKey{}, op)
}

// GetOperator returns OperatorContext from context.
func GetOperator(ctx context.Context) *OperatorContext {
	if v, ok := ctx.Value(operatorContextKey{}).(*OperatorContext); ok {
		return v
	}
	return nil
}

// GetOperatorID returns operator ID from context or empty string.
func GetOperatorID(ctx context.Context) string {
	if op := GetOperator(ctx); op != nil {
		return op.OperatorID
	}
	return ""
}

// HasLocationAccess reports whether the operator may act on a location.
// An operator without an explicit location list is unrestricted.
func HasLocationAccess(ctx context.Context, locationID string) bool {
	op := GetOperator(ctx)
	if op == nil {
		return false
	}
	if len(op.LocationIDs) == 0 {
		return true
	}
	for _, id := range op.LocationIDs {
		if id == locationID {
			return true
		}
	}
	return false
}
