// Package id provides UUIDv7 generation for lots, products and staged entries.
// UUIDv7 is time-ordered: comparing two ids created by this package gives their
// creation order, which the lot store uses as the FIFO tie-break.
package id

import (
	"bytes"

	"github.com/google/uuid"
)

// ID is a type alias for UUID, used across all entities.
type ID = uuid.UUID

// New generates a new UUIDv7.
func New() ID {
	v, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return v
}

// Parse converts string to ID with validation.
func Parse(s string) (ID, error) {
	return uuid.Parse(s)
}

// MustParse converts string to ID, panics on error.
// Use only for constants and tests.
func MustParse(s string) ID {
	return uuid.MustParse(s)
}

// IsNil checks if ID is zero-value.
func IsNil(v ID) bool {
	return v == uuid.Nil
}

// Compare orders ids by their byte representation (-1, 0, +1).
func Compare(a, b ID) int {
	return bytes.Compare(a[:], b[:])
}
