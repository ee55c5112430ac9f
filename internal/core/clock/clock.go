// Package clock supplies the wall-clock reading used for expiry decisions.
package clock

import (
	"sync"
	"time"

	"pharmastock/internal/core/types"
)

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// System is the real clock, reporting time in a fixed location (the store's
// time zone decides which calendar day "today" is).
type System struct {
	Location *time.Location
}

// NewSystem returns a system clock bound to loc (UTC when nil).
func NewSystem(loc *time.Location) System {
	if loc == nil {
		loc = time.UTC
	}
	return System{Location: loc}
}

// Now implements Clock.
func (s System) Now() time.Time {
	loc := s.Location
	if loc == nil {
		loc = time.UTC
	}
	return time.Now().In(loc)
}

// Fixed always reports the same instant. Used in tests.
type Fixed time.Time

// Now implements Clock.
func (f Fixed) Now() time.Time { return time.Time(f) }

// Today returns the current calendar day of c as a date-only value.
func Today(c Clock) time.Time {
	return types.DateOnly(c.Now())
}

// Manual is a settable clock for tests that need time to move.
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

// NewManual creates a manual clock starting at t.
func NewManual(t time.Time) *Manual {
	return &Manual{now: t}
}

// Now implements Clock.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Set moves the clock to t.
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t
}

// Advance moves the clock forward by d.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}
