// Package numerator provides domain contracts for batch reference numbering.
// Implementations live in pkg/numerator.
package numerator

import (
	"context"
	"time"
)

// Generator issues batch reference tokens.
//
// A batch reference groups every lot committed in one staging round
// (pattern BR-YYYYMMDD-HHMMSS). It is human-readable and unique enough for
// grouping, but it is not a primary key.
type Generator interface {
	// Next returns a token for a round starting at period. Consecutive calls
	// never return the same token.
	Next(ctx context.Context, period time.Time) (string, error)
}
