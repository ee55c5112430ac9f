// Package session owns staging ledgers. Each session stages stock for one
// location on behalf of one operator.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pharmastock/internal/core/apperror"
	"pharmastock/internal/core/clock"
	appctx "pharmastock/internal/core/context"
	"pharmastock/internal/core/id"
	"pharmastock/internal/core/numerator"
	"pharmastock/internal/domain/staging"
	"pharmastock/pkg/logger"
)

// Session is one operator's staging round state.
type Session struct {
	ID         string          `json:"id"`
	LocationID id.ID           `json:"locationId"`
	OperatorID string          `json:"operatorId,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
	Ledger     *staging.Ledger `json:"-"`

	mu       sync.Mutex
	lastSeen time.Time
}

// LastSeen returns when the session was last used.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *Session) touch(t time.Time) {
	s.mu.Lock()
	s.lastSeen = t
	s.mu.Unlock()
}

// Registry keeps open sessions in memory.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	numerator numerator.Generator
	products  staging.ProductLookup
	prices    staging.PriceLookup
	clock     clock.Clock
}

// NewRegistry creates an empty registry.
func NewRegistry(gen numerator.Generator, products staging.ProductLookup, prices staging.PriceLookup, c clock.Clock) *Registry {
	if c == nil {
		c = clock.NewSystem(nil)
	}
	return &Registry{
		sessions:  make(map[string]*Session),
		numerator: gen,
		products:  products,
		prices:    prices,
		clock:     c,
	}
}

// Open starts a session with a fresh ledger and batch reference.
func (r *Registry) Open(ctx context.Context, locationID id.ID) (*Session, error) {
	if id.IsNil(locationID) {
		return nil, apperror.NewFieldValidation("locationId", "location is required")
	}

	now := r.clock.Now()
	ref, err := r.numerator.Next(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("issue batch reference: %w", err)
	}

	s := &Session{
		ID:         id.New().String(),
		LocationID: locationID,
		OperatorID: appctx.GetOperatorID(ctx),
		CreatedAt:  now,
		Ledger:     staging.NewLedger(locationID, ref, r.products, r.prices, r.clock),
		lastSeen:   now,
	}

	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()

	logger.Info(ctx, "staging session opened",
		"session_id", s.ID,
		"location_id", locationID,
		"batch_reference", ref,
	)
	return s, nil
}

// Get returns an open session.
func (r *Registry) Get(sessionID string) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[sessionID]
	r.mu.RUnlock()
	if !ok {
		return nil, apperror.NewNotFound("session", sessionID)
	}
	s.touch(r.clock.Now())
	return s, nil
}

// Close discards a session and everything staged in it.
func (r *Registry) Close(sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[sessionID]; !ok {
		return apperror.NewNotFound("session", sessionID)
	}
	delete(r.sessions, sessionID)
	return nil
}

// Len returns the number of open sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Expire closes sessions idle for longer than ttl and returns how many were closed.
func (r *Registry) Expire(ctx context.Context, ttl time.Duration) int {
	cutoff := r.clock.Now().Add(-ttl)

	r.mu.Lock()
	defer r.mu.Unlock()

	closed := 0
	for sid, s := range r.sessions {
		if s.LastSeen().Before(cutoff) {
			delete(r.sessions, sid)
			closed++
			logger.Info(ctx, "staging session expired",
				"session_id", sid,
				"staged", s.Ledger.Len(),
			)
		}
	}
	return closed
}
