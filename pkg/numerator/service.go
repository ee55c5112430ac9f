// Package numerator issues batch reference tokens of the form BR-YYYYMMDD-HHMMSS.
package numerator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	core "pharmastock/internal/core/numerator"
)

// Layout is the timestamp portion of a batch reference.
const Layout = "20060102-150405"

// Config holds numbering configuration.
type Config struct {
	// Prefix added to all references (default "BR")
	Prefix string

	// Location decides the calendar day/time printed in the token (default UTC)
	Location *time.Location
}

// DefaultConfig returns the standard batch reference configuration.
func DefaultConfig() Config {
	return Config{Prefix: "BR", Location: time.UTC}
}

// Service produces batch references. It is safe for concurrent use.
//
// Two rounds started within the same second would format to the same token,
// so the service remembers the last issued base and appends -2, -3, ... to
// keep consecutive tokens distinct.
type Service struct {
	cfg Config

	mu       sync.Mutex
	lastBase string
	seq      int
}

// New creates a batch reference service.
func New(cfg Config) *Service {
	if cfg.Prefix == "" {
		cfg.Prefix = "BR"
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Service{cfg: cfg}
}

// Next implements numerator.Generator.
func (s *Service) Next(_ context.Context, period time.Time) (string, error) {
	if s == nil {
		return "", fmt.Errorf("numerator service is not initialized")
	}
	if period.IsZero() {
		period = time.Now()
	}

	base := Format(s.cfg.Prefix, period.In(s.cfg.Location))

	s.mu.Lock()
	defer s.mu.Unlock()

	if base == s.lastBase {
		s.seq++
		return fmt.Sprintf("%s-%d", base, s.seq), nil
	}
	s.lastBase = base
	s.seq = 1
	return base, nil
}

// Format renders prefix and period into a reference without any suffix.
func Format(prefix string, period time.Time) string {
	return prefix + "-" + period.Format(Layout)
}

// Parse extracts the timestamp from a reference in the given location.
// Any collision suffix is ignored.
func Parse(ref string, loc *time.Location) (time.Time, error) {
	parts := strings.SplitN(ref, "-", 4)
	if len(parts) < 3 {
		return time.Time{}, fmt.Errorf("malformed batch reference %q", ref)
	}
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(Layout, parts[1]+"-"+parts[2], loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse batch reference %q: %w", ref, err)
	}
	return t, nil
}

var _ core.Generator = (*Service)(nil)
